package random

import (
	"context"
	"io"

	"github.com/wippyai/wasm-host/wasi/preview2"
)

// MaxRandomBytes limits single-call allocation (1MB).
const MaxRandomBytes = 1 << 20

type SecureRandomHost struct {
	view preview2.View
}

func NewSecureRandomHost(view preview2.View) *SecureRandomHost {
	return &SecureRandomHost{view: view}
}

func (h *SecureRandomHost) Namespace() string {
	return "wasi:random/random@0.2.0"
}

func (h *SecureRandomHost) GetRandomBytes(_ context.Context, n uint64) ([]byte, error) {
	return readBytes(h.view.Context().SecureRandom(), n)
}

func (h *SecureRandomHost) GetRandomU64(_ context.Context) uint64 {
	return h.view.Context().SecureRandom().Uint64()
}

func readBytes(rng preview2.RNG, n uint64) ([]byte, error) {
	if n > MaxRandomBytes {
		n = MaxRandomBytes
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(rng, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
