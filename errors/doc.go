// Package errors provides structured error types for the wasm-host library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the logical resource involved, the expected and actual
// shape when a mismatch is reported, and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseRestore, errors.KindSizeMismatch).
//		Resource("instance 0 memory 1").
//		Expected("%d bytes", want).
//		Actual("%d bytes", got).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseTable, "handle 3", "directory", "input-stream")
//	err := errors.ShapeMismatch(errors.PhaseRestore, "memories", 2, 1)
//
// The Err* sentinels match on Kind alone:
//
//	if errors.Is(err, wherrors.ErrNotFound) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
