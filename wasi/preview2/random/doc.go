// Package random implements WASI random interfaces over the RNGs of a built
// host context.
//
// Implements:
//   - wasi:random/random@0.2.0 - Cryptographically secure random
//   - wasi:random/insecure@0.2.0 - Fast non-cryptographic random
//   - wasi:random/insecure-seed@0.2.0 - Seed for hash-map style randomization
package random
