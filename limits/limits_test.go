package limits

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/experimental"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/wippyai/wasm-host/internal/wasmbin"
)

func ptrTo[T any](v T) *T { return &v }

func TestPolicies(t *testing.T) {
	ctx := t.Context()

	ok, err := AllowAll().MemoryGrowing(ctx, 0, 1<<20, nil)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = DenyAll().TableGrowing(ctx, 0, 1, nil)
	require.NoError(t, err)
	require.False(t, ok)

	q := Quota{MaxMemoryBytes: 2 << 16}
	ok, _ = q.MemoryGrowing(ctx, 0, 2<<16, nil)
	require.True(t, ok)
	ok, _ = q.MemoryGrowing(ctx, 0, 3<<16, nil)
	require.False(t, ok)
	ok, _ = q.TableGrowing(ctx, 0, 1_000_000, nil)
	require.True(t, ok, "zero table quota is unlimited")

	ok, err = Funcs{}.MemoryGrowing(ctx, 0, 1, nil)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAllowAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	ok, err := AllowAll().MemoryGrowing(ctx, 0, 1, nil)
	require.False(t, ok)
	require.ErrorIs(t, err, context.Canceled)
}

func TestChain(t *testing.T) {
	var asked []string
	record := func(name string, allow bool) Limiter {
		return Funcs{Memory: func(context.Context, uint64, uint64, *uint64) (bool, error) {
			asked = append(asked, name)
			return allow, nil
		}}
	}

	c := Chain(record("a", true), nil, Chain(record("b", false), record("c", true)))
	ok, err := c.MemoryGrowing(t.Context(), 0, 1, nil)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, []string{"a", "b"}, asked)

	ok, err = Chain().TableGrowing(t.Context(), 0, 1, nil)
	require.NoError(t, err)
	require.True(t, ok)

	boom := errors.New("boom")
	ok, err = Chain(Funcs{Table: func(context.Context, uint32, uint32, *uint32) (bool, error) {
		return true, boom
	}}).TableGrowing(t.Context(), 0, 1, nil)
	require.False(t, ok)
	require.ErrorIs(t, err, boom)
}

func TestGrowingFoldsFailures(t *testing.T) {
	ctx := t.Context()
	failing := Funcs{Memory: func(context.Context, uint64, uint64, *uint64) (bool, error) {
		return true, errors.New("backend down")
	}}

	require.True(t, MemoryGrowing(ctx, nil, 0, 1, nil))
	require.False(t, MemoryGrowing(ctx, failing, 0, 1, nil))
	require.False(t, MemoryGrowing(ctx, AllowAll(), 0, 10, ptrTo(uint64(5))))
	require.True(t, TableGrowing(ctx, AllowAll(), 0, 5, ptrTo(uint32(5))))
	require.False(t, TableGrowing(ctx, AllowAll(), 0, 6, ptrTo(uint32(5))))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.False(t, MemoryGrowing(cancelled, Funcs{}, 0, 1, nil))
	require.False(t, TableGrowing(cancelled, Funcs{}, 0, 1, nil))
}

func TestRate(t *testing.T) {
	r := NewRate(rate.Every(time.Hour), 1)

	ok, err := r.MemoryGrowing(t.Context(), 0, 1, nil)
	require.NoError(t, err)
	require.True(t, ok)

	// The bucket is empty and refills long after the deadline.
	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	ok, err = r.TableGrowing(ctx, 0, 1, nil)
	require.Error(t, err)
	require.False(t, ok)
}

func TestLogged(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := Logged(Quota{MaxMemoryBytes: 100}, zap.New(core))

	ok, _ := l.MemoryGrowing(t.Context(), 10, 50, nil)
	require.True(t, ok)
	ok, _ = l.MemoryGrowing(t.Context(), 50, 200, ptrTo(uint64(400)))
	require.False(t, ok)
	ok, _ = l.TableGrowing(t.Context(), 1, 2, ptrTo(uint32(8)))
	require.True(t, ok)

	require.Equal(t, 2, logs.FilterMessage("growth allowed").Len())
	denied := logs.FilterMessage("growth denied").All()
	require.Len(t, denied, 1)
	require.Equal(t, zap.InfoLevel, denied[0].Level)
	fields := denied[0].ContextMap()
	require.Equal(t, "memory", fields["resource"])
	require.Equal(t, uint64(200), fields["desired"])
	require.Equal(t, uint64(400), fields["maximum"])
}

// growModule exports a one page memory capped at four pages and a function
// that runs memory.grow with its argument.
func growModule() []byte {
	m := &wasmbin.Module{
		Funcs: []wasmbin.Func{{
			Params:  []wasmbin.ValType{wasmbin.I32},
			Results: []wasmbin.ValType{wasmbin.I32},
			Body: wasmbin.Code(
				wasmbin.Index(wasmbin.OpLocalGet, 0),
				wasmbin.Memory(wasmbin.OpMemoryGrow, 0),
			),
		}},
		Memories: []wasmbin.Limits{{Min: 1, Max: ptrTo(uint32(4))}},
		Exports: []wasmbin.Export{
			{Name: "memory", Kind: wasmbin.ExternMemory, Index: 0},
			{Name: "grow", Kind: wasmbin.ExternFunc, Index: 0},
		},
	}
	return m.Encode()
}

func TestAllocator_Wazero(t *testing.T) {
	const page = 1 << 16

	var seen [][2]uint64
	lim := Funcs{Memory: func(_ context.Context, current, desired uint64, _ *uint64) (bool, error) {
		seen = append(seen, [2]uint64{current, desired})
		return desired <= 2*page, nil
	}}

	alloc := NewAllocator(t.Context(), lim)
	ctx := experimental.WithMemoryAllocator(t.Context(), alloc)

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	mod, err := rt.Instantiate(ctx, growModule())
	require.NoError(t, err)
	require.Empty(t, seen, "initial allocation is not a growth")

	mem := mod.ExportedMemory("memory")
	require.Equal(t, uint32(page), mem.Size())
	require.True(t, mem.Write(0, []byte{0xAA}))

	prev, ok := mem.Grow(1)
	require.True(t, ok)
	require.Equal(t, uint32(1), prev)
	require.Equal(t, uint32(2*page), mem.Size())

	// Denied by the limiter: the guest sees -1 and memory is unchanged.
	res, err := mod.ExportedFunction("grow").Call(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, uint32(0xffffffff), uint32(res[0]))
	require.Equal(t, uint32(2*page), mem.Size())

	b, ok := mem.ReadByte(0)
	require.True(t, ok)
	require.Equal(t, byte(0xAA), b)

	require.Equal(t, [][2]uint64{{page, 2 * page}, {2 * page, 3 * page}}, seen)
	require.Equal(t, uint64(1), alloc.Stats().Granted())
	require.Equal(t, uint64(1), alloc.Stats().Denied())
}

func TestAllocator_DeclaredMaximum(t *testing.T) {
	alloc := NewAllocator(t.Context(), AllowAll())
	ctx := experimental.WithMemoryAllocator(t.Context(), alloc)

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	mod, err := rt.Instantiate(ctx, growModule())
	require.NoError(t, err)

	res, err := mod.ExportedFunction("grow").Call(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(1), res[0])

	// Past the declared maximum the engine refuses before asking.
	res, err = mod.ExportedFunction("grow").Call(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, uint32(0xffffffff), uint32(res[0]))
	require.Equal(t, uint64(0), alloc.Stats().Denied())
}

func TestAllocator_ContextDone(t *testing.T) {
	life, cancel := context.WithCancel(t.Context())
	ctx := WithLimiter(life, AllowAll())

	rt := wazero.NewRuntime(t.Context())
	defer rt.Close(t.Context())

	mod, err := rt.Instantiate(ctx, growModule())
	require.NoError(t, err)

	cancel()
	_, ok := mod.ExportedMemory("memory").Grow(1)
	require.False(t, ok)
}

func TestLinearMemory_Shrink(t *testing.T) {
	m := NewAllocator(t.Context(), DenyAll()).Allocate(8, 64)
	buf := m.Reallocate(4)
	require.Len(t, buf, 4)
	require.Len(t, m.Reallocate(2), 2)
	require.Nil(t, m.Reallocate(16))
	m.Free()
}

type ctxKey struct{}

func TestAllocator_Bind(t *testing.T) {
	var got context.Context
	lim := Funcs{Memory: func(ctx context.Context, _, _ uint64, _ *uint64) (bool, error) {
		got = ctx
		return ctx.Err() == nil, nil
	}}

	life, end := context.WithCancel(t.Context())
	alloc := NewAllocator(life, lim)
	m := alloc.Allocate(0, 1<<20)
	m.Reallocate(8)

	call, cancel := context.WithCancel(context.WithValue(t.Context(), ctxKey{}, "call"))
	release := alloc.Bind(call)
	require.NotNil(t, m.Reallocate(16))
	require.Equal(t, "call", got.Value(ctxKey{}))

	cancel()
	require.Nil(t, m.Reallocate(32), "growth after the call is cancelled")

	release()
	require.NotNil(t, m.Reallocate(32), "released binding falls back to the allocator's context")
	require.Nil(t, got.Value(ctxKey{}))

	// The binding also ends with the allocator's own context.
	release = alloc.Bind(t.Context())
	defer release()
	end()
	require.Nil(t, m.Reallocate(64))
}
