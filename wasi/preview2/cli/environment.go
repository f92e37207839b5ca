package cli

import (
	"context"

	"github.com/wippyai/wasm-host/wasi/preview2"
)

type EnvironmentHost struct {
	view preview2.View
	cwd  string
}

// NewEnvironmentHost serves the environment and arguments of view's context.
// An empty cwd reports no initial working directory.
func NewEnvironmentHost(view preview2.View, cwd string) *EnvironmentHost {
	return &EnvironmentHost{view: view, cwd: cwd}
}

func (h *EnvironmentHost) Namespace() string {
	return "wasi:cli/environment@0.2.3"
}

func (h *EnvironmentHost) GetEnvironment(_ context.Context) [][2]string {
	return h.view.Context().Env()
}

func (h *EnvironmentHost) GetArguments(_ context.Context) []string {
	return h.view.Context().Args()
}

func (h *EnvironmentHost) InitialCwd(_ context.Context) *string {
	if h.cwd == "" {
		return nil
	}
	cwd := h.cwd
	return &cwd
}
