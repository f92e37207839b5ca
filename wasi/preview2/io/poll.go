package io

import (
	"context"

	"github.com/wippyai/wasm-host/resource"
	"github.com/wippyai/wasm-host/wasi/preview2"
)

// Pollable is implemented by resources registered as resource.KindPollable.
type Pollable interface {
	resource.Resource
	Ready() bool
	Block(ctx context.Context) error
}

var _ Pollable = (*preview2.TimerPollable)(nil)

type PollHost struct {
	view preview2.View
}

func NewPollHost(view preview2.View) *PollHost {
	return &PollHost{view: view}
}

func (h *PollHost) Namespace() string {
	return "wasi:io/poll@0.2.8"
}

func (h *PollHost) pollable(self resource.Handle) (Pollable, error) {
	return resource.GetAs[Pollable](h.view.Table(), self, resource.KindPollable)
}

// Poll returns the indexes of the ready pollables. If none is ready it blocks
// until the first one becomes ready or ctx ends.
func (h *PollHost) Poll(ctx context.Context, pollables []resource.Handle) ([]uint32, error) {
	if len(pollables) == 0 {
		return nil, nil
	}
	ps := make([]Pollable, len(pollables))
	for i, handle := range pollables {
		p, err := h.pollable(handle)
		if err != nil {
			return nil, err
		}
		ps[i] = p
	}

	ready := readyIndexes(ps)
	if len(ready) > 0 {
		return ready, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{}, len(ps))
	for _, p := range ps {
		go func() {
			if p.Block(ctx) == nil {
				done <- struct{}{}
			}
		}()
	}
	select {
	case <-done:
		return readyIndexes(ps), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func readyIndexes(ps []Pollable) []uint32 {
	var ready []uint32
	for i, p := range ps {
		if p.Ready() {
			ready = append(ready, uint32(i))
		}
	}
	return ready
}

func (h *PollHost) MethodPollableReady(_ context.Context, self resource.Handle) (bool, error) {
	p, err := h.pollable(self)
	if err != nil {
		return false, err
	}
	return p.Ready(), nil
}

func (h *PollHost) MethodPollableBlock(ctx context.Context, self resource.Handle) error {
	p, err := h.pollable(self)
	if err != nil {
		return err
	}
	return p.Block(ctx)
}

func (h *PollHost) ResourceDropPollable(_ context.Context, self resource.Handle) error {
	_, err := h.view.Table().Remove(self, resource.KindPollable)
	return err
}
