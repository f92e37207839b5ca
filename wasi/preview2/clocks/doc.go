// Package clocks implements WASI clock interfaces over the clocks of a built
// host context.
//
// Implements:
//   - wasi:clocks/wall-clock@0.2.3 - Wall clock time
//   - wasi:clocks/monotonic-clock@0.2.3 - Monotonic time and timers
package clocks
