package filesystem

import (
	"context"

	"github.com/wippyai/wasm-host/resource"
	"github.com/wippyai/wasm-host/wasi/preview2"
)

type PreopensHost struct {
	view preview2.View
}

func NewPreopensHost(view preview2.View) *PreopensHost {
	return &PreopensHost{view: view}
}

func (h *PreopensHost) Namespace() string {
	return "wasi:filesystem/preopens@0.2.3"
}

// Directory pairs a directory descriptor with its guest path.
type Directory struct {
	Path   string
	Handle resource.Handle
}

// GetDirectories returns the preopens in the order they were configured.
func (h *PreopensHost) GetDirectories(_ context.Context) []Directory {
	preopens := h.view.Context().Preopens()
	result := make([]Directory, len(preopens))
	for i, p := range preopens {
		result[i] = Directory{Handle: p.Handle, Path: p.Path}
	}
	return result
}
