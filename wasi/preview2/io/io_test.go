package io

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	wherrors "github.com/wippyai/wasm-host/errors"
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

func TestStreamsHost_ReadWrite(t *testing.T) {
	out := preview2.NewMemoryOutputStream()
	state := newState(t, preview2.NewBuilder().
		Stdin(preview2.NewReaderInputStream(strings.NewReader("ping")), preview2.IsATTYNo).
		Stdout(out, preview2.IsATTYNo))
	host := NewStreamsHost(state)
	ctx := context.Background()
	wasi := state.Context()

	data, err := host.MethodInputStreamRead(ctx, wasi.Stdin().Handle, 2)
	require.NoError(t, err)
	require.Equal(t, "pi", string(data))

	skipped, err := host.MethodInputStreamSkip(ctx, wasi.Stdin().Handle, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(2), skipped)

	_, err = host.MethodInputStreamBlockingRead(ctx, wasi.Stdin().Handle, 1)
	require.True(t, preview2.IsClosed(err))

	budget, err := host.MethodOutputStreamCheckWrite(ctx, wasi.Stdout().Handle)
	require.NoError(t, err)
	require.Positive(t, budget)

	require.NoError(t, host.MethodOutputStreamWrite(ctx, wasi.Stdout().Handle, []byte("pong")))
	require.NoError(t, host.MethodOutputStreamBlockingWriteAndFlush(ctx, wasi.Stdout().Handle, []byte("!")))
	require.Equal(t, "pong!", out.String())
}

func TestStreamsHost_WrongKind(t *testing.T) {
	state := newState(t, preview2.NewBuilder())
	host := NewStreamsHost(state)
	ctx := context.Background()
	wasi := state.Context()

	_, err := host.MethodInputStreamRead(ctx, wasi.Stdout().Handle, 1)
	require.ErrorIs(t, err, wherrors.ErrTypeMismatch)

	err = host.MethodOutputStreamWrite(ctx, wasi.Stdin().Handle, []byte("x"))
	require.ErrorIs(t, err, wherrors.ErrTypeMismatch)

	_, err = host.MethodOutputStreamCheckWrite(ctx, 12345)
	require.ErrorIs(t, err, wherrors.ErrNotFound)
}

func TestStreamsHost_Drop(t *testing.T) {
	state := newState(t, preview2.NewBuilder())
	host := NewStreamsHost(state)
	ctx := context.Background()
	stdout := state.Context().Stdout().Handle

	require.ErrorIs(t, host.ResourceDropInputStream(ctx, stdout), wherrors.ErrTypeMismatch)
	require.NoError(t, host.ResourceDropOutputStream(ctx, stdout))
	require.ErrorIs(t, host.MethodOutputStreamWrite(ctx, stdout, []byte("x")), wherrors.ErrNotFound)
	require.ErrorIs(t, host.ResourceDropOutputStream(ctx, stdout), wherrors.ErrNotFound)
}

func TestPollHost(t *testing.T) {
	state := newState(t, preview2.NewBuilder())
	host := NewPollHost(state)
	ctx := context.Background()
	table := state.Table()

	past, err := table.Push(preview2.NewTimerPollable(time.Now().Add(-time.Second)))
	require.NoError(t, err)
	soon, err := table.Push(preview2.NewTimerPollable(time.Now().Add(20 * time.Millisecond)))
	require.NoError(t, err)
	never, err := table.Push(preview2.NewTimerPollable(time.Now().Add(time.Hour)))
	require.NoError(t, err)

	ready, err := host.Poll(ctx, []resource.Handle{never, past})
	require.NoError(t, err)
	require.Equal(t, []uint32{1}, ready)

	ready, err = host.Poll(ctx, []resource.Handle{never, soon})
	require.NoError(t, err)
	require.Equal(t, []uint32{1}, ready)

	cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = host.Poll(cctx, []resource.Handle{never})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	ok, err := host.MethodPollableReady(ctx, past)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, host.MethodPollableBlock(ctx, past))

	_, err = host.Poll(ctx, []resource.Handle{state.Context().Stdin().Handle})
	require.ErrorIs(t, err, wherrors.ErrTypeMismatch)

	require.NoError(t, host.ResourceDropPollable(ctx, never))
	_, err = host.MethodPollableReady(ctx, never)
	require.ErrorIs(t, err, wherrors.ErrNotFound)
}
