// Package cli implements the WASI CLI interfaces over a built host context.
//
// Implements:
//   - wasi:cli/environment@0.2.3 - Environment variables and arguments
//   - wasi:cli/exit@0.2.3 - Program exit
//   - wasi:cli/stdin@0.2.3 - Standard input
//   - wasi:cli/stdout@0.2.3 - Standard output
//   - wasi:cli/stderr@0.2.3 - Standard error
//   - wasi:cli/terminal-stdin@0.2.3 - Terminal stdin
//   - wasi:cli/terminal-stdout@0.2.3 - Terminal stdout
//   - wasi:cli/terminal-stderr@0.2.3 - Terminal stderr
//
// Stdio handles are the ones registered when the context was built; the
// hosts never allocate new streams.
package cli
