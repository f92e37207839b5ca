package cli

import (
	"context"
	"fmt"
)

// ExitError carries the status a guest exited with. The caller of the guest
// export decides what to do with it.
type ExitError struct {
	Code uint32
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("guest exited with status %d", e.Code)
}

type ExitHost struct{}

func NewExitHost() *ExitHost {
	return &ExitHost{}
}

func (h *ExitHost) Namespace() string {
	return "wasi:cli/exit@0.2.3"
}

// Exit maps the result<_, _> status to an ExitError: ok is 0, err is 1.
func (h *ExitHost) Exit(_ context.Context, ok bool) error {
	if ok {
		return &ExitError{Code: 0}
	}
	return &ExitError{Code: 1}
}

func (h *ExitHost) ExitWithCode(_ context.Context, code uint8) error {
	return &ExitError{Code: uint32(code)}
}
