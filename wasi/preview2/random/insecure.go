package random

import (
	"context"

	"github.com/wippyai/wasm-host/wasi/preview2"
)

type InsecureRandomHost struct {
	view preview2.View
}

func NewInsecureRandomHost(view preview2.View) *InsecureRandomHost {
	return &InsecureRandomHost{view: view}
}

func (h *InsecureRandomHost) Namespace() string {
	return "wasi:random/insecure@0.2.0"
}

func (h *InsecureRandomHost) GetInsecureRandomBytes(_ context.Context, n uint64) ([]byte, error) {
	return readBytes(h.view.Context().InsecureRandom(), n)
}

func (h *InsecureRandomHost) GetInsecureRandomU64(_ context.Context) uint64 {
	return h.view.Context().InsecureRandom().Uint64()
}
