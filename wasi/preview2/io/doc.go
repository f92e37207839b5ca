// Package io implements WASI I/O interfaces for stream and pollable
// handles.
//
// Implements:
//   - wasi:io/streams@0.2.8 - Input and output streams
//   - wasi:io/poll@0.2.8 - Pollable resources
//
// Every call resolves its handle through the instantiation's table with the
// expected kind, so a stale or mistyped handle is an error rather than a
// crash.
package io
