// Package limits decides whether an instantiation may grow its linear
// memories or tables.
//
// A Limiter is consulted before every growth attempt and may block, for
// example to wait on a budget shared between tenants. A denial is a normal
// outcome: memory.grow returns -1 to the guest and nothing traps. An error
// or a cancelled context is treated as a denial.
//
//	lim := limits.Chain(
//	    limits.Quota{MaxMemoryBytes: 64 << 20},
//	    limits.NewRate(rate.Every(time.Millisecond), 16),
//	)
//	ctx = limits.WithLimiter(ctx, limits.Logged(lim, logger))
//	mod, err := runtime.InstantiateModule(ctx, compiled, cfg)
//
// Wazero exposes no hook for table growth, so TableGrowing is only reached
// by callers that grow tables themselves.
package limits
