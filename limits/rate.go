package limits

import (
	"context"

	"golang.org/x/time/rate"
)

// Rate admits growth attempts through a token bucket. Each attempt takes one
// token and waits for it, so a burst of growth suspends the guest instead of
// failing. An attempt whose wait would outlast ctx is denied.
type Rate struct {
	lim *rate.Limiter
}

// NewRate admits r growth attempts per second with the given burst.
func NewRate(r rate.Limit, burst int) *Rate {
	return &Rate{lim: rate.NewLimiter(r, burst)}
}

// NewRateFrom wraps an existing limiter, for sharing a budget across
// instantiations.
func NewRateFrom(lim *rate.Limiter) *Rate {
	return &Rate{lim: lim}
}

func (r *Rate) MemoryGrowing(ctx context.Context, _, _ uint64, _ *uint64) (bool, error) {
	return r.wait(ctx)
}

func (r *Rate) TableGrowing(ctx context.Context, _, _ uint32, _ *uint32) (bool, error) {
	return r.wait(ctx)
}

func (r *Rate) wait(ctx context.Context) (bool, error) {
	if err := r.lim.Wait(ctx); err != nil {
		return false, err
	}
	return true, nil
}
