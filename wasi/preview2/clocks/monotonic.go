package clocks

import (
	"context"
	"time"

	"github.com/wippyai/wasm-host/resource"
	"github.com/wippyai/wasm-host/wasi/preview2"
)

type MonotonicClockHost struct {
	view preview2.View
}

func NewMonotonicClockHost(view preview2.View) *MonotonicClockHost {
	return &MonotonicClockHost{view: view}
}

func (h *MonotonicClockHost) Namespace() string {
	return "wasi:clocks/monotonic-clock@0.2.3"
}

func (h *MonotonicClockHost) Now(_ context.Context) uint64 {
	return h.view.Context().MonotonicClock().Now()
}

func (h *MonotonicClockHost) Resolution(_ context.Context) uint64 {
	return h.view.Context().MonotonicClock().Resolution()
}

// SubscribeInstant returns a pollable that is ready once the clock reaches
// when.
func (h *MonotonicClockHost) SubscribeInstant(ctx context.Context, when uint64) (resource.Handle, error) {
	now := h.Now(ctx)
	var wait uint64
	if when > now {
		wait = when - now
	}
	return h.SubscribeDuration(ctx, wait)
}

func (h *MonotonicClockHost) SubscribeDuration(_ context.Context, duration uint64) (resource.Handle, error) {
	d := time.Duration(duration)
	if duration > uint64(1<<63-1) {
		d = time.Duration(1<<63 - 1)
	}
	return h.view.Table().Push(preview2.NewTimerPollable(time.Now().Add(d)))
}
