package preview2

import (
	"context"
	"time"

	"github.com/wippyai/wasm-host/resource"
)

// WallClock reports the current calendar time.
type WallClock interface {
	Now() time.Time
	Resolution() time.Duration
}

// MonotonicClock reports nanoseconds from an arbitrary fixed origin.
type MonotonicClock interface {
	Now() uint64
	Resolution() uint64
}

type hostWallClock struct{}

func (hostWallClock) Now() time.Time            { return time.Now() }
func (hostWallClock) Resolution() time.Duration { return time.Nanosecond }

// HostWallClock returns the host's real-time clock.
func HostWallClock() WallClock { return hostWallClock{} }

type hostMonotonicClock struct {
	origin time.Time
}

func (c hostMonotonicClock) Now() uint64        { return uint64(time.Since(c.origin)) }
func (c hostMonotonicClock) Resolution() uint64 { return 1 }

// HostMonotonicClock returns a monotonic clock whose origin is the moment it
// was created.
func HostMonotonicClock() MonotonicClock {
	return hostMonotonicClock{origin: time.Now()}
}

// FixedWallClock always reports the same instant.
type FixedWallClock struct {
	T time.Time
}

func (c FixedWallClock) Now() time.Time            { return c.T }
func (c FixedWallClock) Resolution() time.Duration { return time.Nanosecond }

// TimerPollable becomes ready at a deadline.
type TimerPollable struct {
	deadline time.Time
}

func NewTimerPollable(deadline time.Time) *TimerPollable {
	return &TimerPollable{deadline: deadline}
}

func (p *TimerPollable) ResourceKind() resource.Kind { return resource.KindPollable }
func (p *TimerPollable) Deadline() time.Time         { return p.deadline }
func (p *TimerPollable) Ready() bool                 { return !time.Now().Before(p.deadline) }

// Block waits for the deadline or for ctx to end.
func (p *TimerPollable) Block(ctx context.Context) error {
	remaining := time.Until(p.deadline)
	if remaining <= 0 {
		return nil
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
