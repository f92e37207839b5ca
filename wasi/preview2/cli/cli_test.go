package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-host/resource"
	"github.com/wippyai/wasm-host/wasi/preview2"
)

func newState(t *testing.T, b *preview2.Builder) *preview2.HostState {
	t.Helper()
	state, err := preview2.NewHostState(b)
	require.NoError(t, err)
	t.Cleanup(func() { _ = state.Close() })
	return state
}

func TestEnvironmentHost(t *testing.T) {
	state := newState(t, preview2.NewBuilder().
		Env("USER", "testuser").
		Env("HOME", "/home/testuser").
		Env("USER", "other").
		Args("program", "--flag", "value"))
	host := NewEnvironmentHost(state, "")
	ctx := context.Background()

	require.Equal(t, [][2]string{
		{"USER", "testuser"},
		{"HOME", "/home/testuser"},
		{"USER", "other"},
	}, host.GetEnvironment(ctx))
	require.Equal(t, []string{"program", "--flag", "value"}, host.GetArguments(ctx))
	require.Nil(t, host.InitialCwd(ctx))

	withCwd := NewEnvironmentHost(state, "/work")
	require.Equal(t, "/work", *withCwd.InitialCwd(ctx))
	require.Equal(t, "wasi:cli/environment@0.2.3", host.Namespace())
}

func TestStdioHosts(t *testing.T) {
	out := preview2.NewMemoryOutputStream()
	errOut := preview2.NewMemoryOutputStream()
	state := newState(t, preview2.NewBuilder().
		Stdout(out, preview2.IsATTYNo).
		Stderr(errOut, preview2.IsATTYNo))
	ctx := context.Background()

	in := NewStdinHost(state).GetStdin(ctx)
	_, err := state.Table().Get(in, resource.KindInputStream)
	require.NoError(t, err)

	h := NewStdoutHost(state).GetStdout(ctx)
	s, err := resource.GetAs[preview2.OutputStream](state.Table(), h, resource.KindOutputStream)
	require.NoError(t, err)
	require.NoError(t, s.Write([]byte("out")))
	require.Equal(t, "out", out.String())

	eh := NewStderrHost(state).GetStderr(ctx)
	require.NotEqual(t, h, eh)
	es, err := resource.GetAs[preview2.OutputStream](state.Table(), eh, resource.KindOutputStream)
	require.NoError(t, err)
	require.NoError(t, es.Write([]byte("err")))
	require.Equal(t, "err", errOut.String())

	// Repeated calls return the same handle.
	require.Equal(t, h, NewStdoutHost(state).GetStdout(ctx))
}

func TestTerminalHost(t *testing.T) {
	state := newState(t, preview2.NewBuilder().
		Stdin(preview2.ClosedInputStream{}, preview2.IsATTYYes).
		Stdout(preview2.SinkOutputStream{}, preview2.IsATTYNo).
		Stderr(preview2.SinkOutputStream{}, preview2.IsATTYYes))
	host := NewTerminalHost(state)
	ctx := context.Background()

	stdin, err := host.GetTerminalStdin(ctx)
	require.NoError(t, err)
	require.NotNil(t, stdin)
	term, err := resource.GetAs[*Terminal](state.Table(), *stdin, resource.KindTerminalInput)
	require.NoError(t, err)
	require.Equal(t, "stdin", term.Stream)

	again, err := host.GetTerminalStdin(ctx)
	require.NoError(t, err)
	require.Equal(t, *stdin, *again)

	stdout, err := host.GetTerminalStdout(ctx)
	require.NoError(t, err)
	require.Nil(t, stdout)

	stderr, err := host.GetTerminalStderr(ctx)
	require.NoError(t, err)
	require.NotNil(t, stderr)
	_, err = state.Table().Get(*stderr, resource.KindTerminalOutput)
	require.NoError(t, err)
}

func TestExitHost(t *testing.T) {
	host := NewExitHost()
	ctx := context.Background()

	var exit *ExitError
	require.True(t, errors.As(host.Exit(ctx, true), &exit))
	require.Equal(t, uint32(0), exit.Code)

	require.True(t, errors.As(host.Exit(ctx, false), &exit))
	require.Equal(t, uint32(1), exit.Code)

	require.EqualError(t, host.ExitWithCode(ctx, 42), "guest exited with status 42")
}
