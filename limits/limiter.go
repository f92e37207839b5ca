package limits

import (
	"context"
)

// Limiter is consulted before a memory or table grows. Returning false, an
// error, or observing a cancelled ctx denies the whole growth; a growth is
// never partially applied.
//
// maximum is the declared or runtime-imposed upper bound, nil when there is
// none.
type Limiter interface {
	MemoryGrowing(ctx context.Context, current, desired uint64, maximum *uint64) (bool, error)
	TableGrowing(ctx context.Context, current, desired uint32, maximum *uint32) (bool, error)
}

type allowAll struct{}

func (allowAll) MemoryGrowing(ctx context.Context, _, _ uint64, _ *uint64) (bool, error) {
	return ctx.Err() == nil, ctx.Err()
}

func (allowAll) TableGrowing(ctx context.Context, _, _ uint32, _ *uint32) (bool, error) {
	return ctx.Err() == nil, ctx.Err()
}

type denyAll struct{}

func (denyAll) MemoryGrowing(context.Context, uint64, uint64, *uint64) (bool, error) {
	return false, nil
}

func (denyAll) TableGrowing(context.Context, uint32, uint32, *uint32) (bool, error) {
	return false, nil
}

// AllowAll permits every growth up to the declared maximum.
func AllowAll() Limiter { return allowAll{} }

// DenyAll refuses every growth.
func DenyAll() Limiter { return denyAll{} }

// Funcs adapts plain functions to a Limiter. A nil function allows.
type Funcs struct {
	Memory func(ctx context.Context, current, desired uint64, maximum *uint64) (bool, error)
	Table  func(ctx context.Context, current, desired uint32, maximum *uint32) (bool, error)
}

func (f Funcs) MemoryGrowing(ctx context.Context, current, desired uint64, maximum *uint64) (bool, error) {
	if f.Memory == nil {
		return true, nil
	}
	return f.Memory(ctx, current, desired, maximum)
}

func (f Funcs) TableGrowing(ctx context.Context, current, desired uint32, maximum *uint32) (bool, error) {
	if f.Table == nil {
		return true, nil
	}
	return f.Table(ctx, current, desired, maximum)
}

type chain []Limiter

// Chain allows a growth only if every limiter allows it. Limiters are asked
// in order and the first denial stops the chain.
func Chain(limiters ...Limiter) Limiter {
	flat := make(chain, 0, len(limiters))
	for _, l := range limiters {
		if l == nil {
			continue
		}
		if c, ok := l.(chain); ok {
			flat = append(flat, c...)
			continue
		}
		flat = append(flat, l)
	}
	return flat
}

func (c chain) MemoryGrowing(ctx context.Context, current, desired uint64, maximum *uint64) (bool, error) {
	for _, l := range c {
		ok, err := l.MemoryGrowing(ctx, current, desired, maximum)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (c chain) TableGrowing(ctx context.Context, current, desired uint32, maximum *uint32) (bool, error) {
	for _, l := range c {
		ok, err := l.TableGrowing(ctx, current, desired, maximum)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// MemoryGrowing asks l and folds errors and cancellation into a denial.
func MemoryGrowing(ctx context.Context, l Limiter, current, desired uint64, maximum *uint64) bool {
	if l == nil {
		return true
	}
	if maximum != nil && desired > *maximum {
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	ok, err := l.MemoryGrowing(ctx, current, desired, maximum)
	return err == nil && ok && ctx.Err() == nil
}

// TableGrowing asks l and folds errors and cancellation into a denial.
func TableGrowing(ctx context.Context, l Limiter, current, desired uint32, maximum *uint32) bool {
	if l == nil {
		return true
	}
	if maximum != nil && desired > *maximum {
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	ok, err := l.TableGrowing(ctx, current, desired, maximum)
	return err == nil && ok && ctx.Err() == nil
}
