package cli

import (
	"context"

	"github.com/wippyai/wasm-host/resource"
	"github.com/wippyai/wasm-host/wasi/preview2"
)

type StdinHost struct {
	view preview2.View
}

func NewStdinHost(view preview2.View) *StdinHost {
	return &StdinHost{view: view}
}

func (h *StdinHost) Namespace() string {
	return "wasi:cli/stdin@0.2.3"
}

func (h *StdinHost) GetStdin(_ context.Context) resource.Handle {
	return h.view.Context().Stdin().Handle
}

type StdoutHost struct {
	view preview2.View
}

func NewStdoutHost(view preview2.View) *StdoutHost {
	return &StdoutHost{view: view}
}

func (h *StdoutHost) Namespace() string {
	return "wasi:cli/stdout@0.2.3"
}

func (h *StdoutHost) GetStdout(_ context.Context) resource.Handle {
	return h.view.Context().Stdout().Handle
}

type StderrHost struct {
	view preview2.View
}

func NewStderrHost(view preview2.View) *StderrHost {
	return &StderrHost{view: view}
}

func (h *StderrHost) Namespace() string {
	return "wasi:cli/stderr@0.2.3"
}

func (h *StderrHost) GetStderr(_ context.Context) resource.Handle {
	return h.view.Context().Stderr().Handle
}
