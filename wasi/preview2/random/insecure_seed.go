package random

import (
	"context"

	"github.com/wippyai/wasm-host/wasi/preview2"
)

type InsecureSeedHost struct {
	view preview2.View
}

func NewInsecureSeedHost(view preview2.View) *InsecureSeedHost {
	return &InsecureSeedHost{view: view}
}

func (h *InsecureSeedHost) Namespace() string {
	return "wasi:random/insecure-seed@0.2.0"
}

// InsecureSeed returns the seed recorded in the context. It is the same value
// for the whole lifetime of the instantiation.
func (h *InsecureSeedHost) InsecureSeed(_ context.Context) (uint64, uint64) {
	seed := h.view.Context().InsecureRandomSeed()
	return seed.Hi, seed.Lo
}
