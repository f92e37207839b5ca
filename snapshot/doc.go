// Package snapshot captures and reinstalls the raw state of an
// instantiation: the bytes of every exported linear memory and the values
// of every exported mutable global.
//
// A Snapshot carries no capabilities. It can be restored any number of
// times, into the instantiation it came from or into a fresh instantiation
// of the same modules, which is how a computation is forked or migrated.
//
//	snap, err := snapshot.Capture(ctx, inst)
//	...
//	fresh, err := eng.Instantiate(ctx, view, limiter, mod)
//	if err := snapshot.Prepare(ctx, fresh, snap); err != nil { ... }
//	if err := snapshot.Restore(ctx, fresh, snap); err != nil { ... }
//
// Capture and Restore must not run concurrently with a guest call on the
// same instantiation. Both complete the full copy before returning.
package snapshot
