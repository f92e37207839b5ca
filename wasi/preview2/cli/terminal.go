package cli

import (
	"context"

	"github.com/wippyai/wasm-host/resource"
	"github.com/wippyai/wasm-host/wasi/preview2"
)

// Terminal is the resource behind a terminal-input or terminal-output
// handle. It only records which stdio stream it describes.
type Terminal struct {
	Stream string
	kind   resource.Kind
}

func (t *Terminal) ResourceKind() resource.Kind { return t.kind }

// TerminalHost answers the terminal-stdin/stdout/stderr queries from the
// IsATTY flags recorded at build time. A terminal handle is pushed on the
// first query for a stream and reused afterwards.
type TerminalHost struct {
	view    preview2.View
	handles map[string]resource.Handle
}

func NewTerminalHost(view preview2.View) *TerminalHost {
	return &TerminalHost{view: view, handles: make(map[string]resource.Handle, 3)}
}

func (h *TerminalHost) Namespace() string {
	return "wasi:cli/terminal-stdin@0.2.3"
}

func (h *TerminalHost) GetTerminalStdin(_ context.Context) (*resource.Handle, error) {
	return h.terminal("stdin", h.view.Context().Stdin().IsATTY, resource.KindTerminalInput)
}

func (h *TerminalHost) GetTerminalStdout(_ context.Context) (*resource.Handle, error) {
	return h.terminal("stdout", h.view.Context().Stdout().IsATTY, resource.KindTerminalOutput)
}

func (h *TerminalHost) GetTerminalStderr(_ context.Context) (*resource.Handle, error) {
	return h.terminal("stderr", h.view.Context().Stderr().IsATTY, resource.KindTerminalOutput)
}

func (h *TerminalHost) terminal(stream string, isatty preview2.IsATTY, kind resource.Kind) (*resource.Handle, error) {
	if isatty != preview2.IsATTYYes {
		return nil, nil
	}
	if handle, ok := h.handles[stream]; ok {
		return &handle, nil
	}
	handle, err := h.view.Table().Push(&Terminal{Stream: stream, kind: kind})
	if err != nil {
		return nil, err
	}
	h.handles[stream] = handle
	return &handle, nil
}
