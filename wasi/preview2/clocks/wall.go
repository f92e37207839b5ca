package clocks

import (
	"context"

	"github.com/wippyai/wasm-host/wasi/preview2"
)

type WallClockHost struct {
	view preview2.View
}

func NewWallClockHost(view preview2.View) *WallClockHost {
	return &WallClockHost{view: view}
}

func (h *WallClockHost) Namespace() string {
	return "wasi:clocks/wall-clock@0.2.3"
}

type Datetime struct {
	Seconds     uint64
	Nanoseconds uint32
}

func (h *WallClockHost) Now(_ context.Context) Datetime {
	now := h.view.Context().WallClock().Now()
	return Datetime{
		Seconds:     uint64(now.Unix()),
		Nanoseconds: uint32(now.Nanosecond()),
	}
}

func (h *WallClockHost) Resolution(_ context.Context) Datetime {
	res := h.view.Context().WallClock().Resolution()
	return Datetime{
		Seconds:     uint64(res / 1e9),
		Nanoseconds: uint32(res % 1e9),
	}
}
