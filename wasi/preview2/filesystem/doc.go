// Package filesystem implements WASI filesystem interfaces over the
// preopened directories of a built host context.
//
// Implements:
//   - wasi:filesystem/preopens@0.2.3 - Preopened directories
//   - wasi:filesystem/types@0.2.3 - Descriptors (subset: open-at, read, write, stat, read-directory)
//
// Paths never escape the preopen they are resolved against, and every
// operation is checked against the directory and file permissions the
// preopen was granted.
package filesystem
