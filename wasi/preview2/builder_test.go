package preview2

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	wherrors "github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/resource"
)

type staticResolver map[string][]netip.Addr

func (r staticResolver) LookupNetIP(_ context.Context, _, host string) ([]netip.Addr, error) {
	if addrs, ok := r[host]; ok {
		return addrs, nil
	}
	return nil, errors.New("no such host")
}

func TestBuild_EndToEnd(t *testing.T) {
	dir, err := OpenDir(t.TempDir(), DirPermsRead, FilePermsRead)
	require.NoError(t, err)

	b := NewBuilder().
		Stdin(ClosedInputStream{}, IsATTYNo).
		Stdout(SinkOutputStream{}, IsATTYNo).
		Stderr(SinkOutputStream{}, IsATTYNo).
		PreopenedDir(dir, "/data").
		InheritNetwork()

	table := resource.New()
	defer table.Close()

	wasi, err := b.Build(table)
	require.NoError(t, err)

	preopens := wasi.Preopens()
	require.Len(t, preopens, 1)
	require.Equal(t, "/data", preopens[0].Path)

	got, err := resource.GetAs[*Dir](table, preopens[0].Handle, resource.KindDirectory)
	require.NoError(t, err)
	require.Same(t, dir, got)

	require.True(t, wasi.Network().IsAuthorized(netip.MustParseAddrPort("93.184.216.34:443")))
	require.True(t, wasi.Network().IsAuthorized(netip.MustParseAddrPort("[2606:2800:220:1::]:80")))
}

func TestBuild_DefaultsGrantNothing(t *testing.T) {
	table := resource.New()
	wasi, err := NewBuilder().Build(table)
	require.NoError(t, err)

	require.Empty(t, wasi.Env())
	require.Empty(t, wasi.Args())
	require.Empty(t, wasi.Preopens())
	require.False(t, wasi.Network().IsAuthorized(netip.MustParseAddrPort("127.0.0.1:80")))
	require.Equal(t, IsATTYNo, wasi.Stdin().IsATTY)

	in, err := resource.GetAs[InputStream](table, wasi.Stdin().Handle, resource.KindInputStream)
	require.NoError(t, err)
	_, err = in.Read(16)
	require.True(t, IsClosed(err))

	out, err := resource.GetAs[OutputStream](table, wasi.Stdout().Handle, resource.KindOutputStream)
	require.NoError(t, err)
	require.NoError(t, out.Write([]byte("dropped")))

	require.Equal(t, 3, table.Len())
	require.NotEqual(t, wasi.Stdout().Handle, wasi.Stderr().Handle)
}

func TestBuild_SecondCallPanics(t *testing.T) {
	b := NewBuilder().Env("A", "1").Arg("prog")
	table := resource.New()

	first, err := b.Build(table)
	require.NoError(t, err)

	require.PanicsWithValue(t, wherrors.ContractViolation(wherrors.PhaseBuild, "Builder.Build called more than once"), func() {
		_, _ = b.Build(resource.New())
	})

	// The first context and its table entries are untouched.
	require.Equal(t, [][2]string{{"A", "1"}}, first.Env())
	require.Equal(t, []string{"prog"}, first.Args())
	require.Equal(t, 3, table.Len())
	_, err = table.Get(first.Stdin().Handle, resource.KindInputStream)
	require.NoError(t, err)
}

func TestBuild_ResetsBuilder(t *testing.T) {
	b := NewBuilder().Env("A", "1").Args("x", "y").InheritNetwork()
	_, err := b.Build(resource.New())
	require.NoError(t, err)

	require.Empty(t, b.env)
	require.Empty(t, b.args)
	require.Equal(t, 0, b.pool.Len())
	require.True(t, b.built)
}

func TestBuild_EnvAndArgsOrder(t *testing.T) {
	b := NewBuilder().
		Env("PATH", "/bin").
		Envs([][2]string{{"LANG", "C"}, {"PATH", "/usr/bin"}}).
		Arg("prog").
		Args("-v", "--", "file")

	wasi, err := b.Build(resource.New())
	require.NoError(t, err)

	require.Equal(t, [][2]string{{"PATH", "/bin"}, {"LANG", "C"}, {"PATH", "/usr/bin"}}, wasi.Env())
	require.Equal(t, []string{"prog", "-v", "--", "file"}, wasi.Args())

	v, ok := wasi.Getenv("PATH")
	require.True(t, ok)
	require.Equal(t, "/usr/bin", v)
	_, ok = wasi.Getenv("HOME")
	require.False(t, ok)

	// Accessors hand out copies.
	env := wasi.Env()
	env[0][1] = "mutated"
	require.Equal(t, "/bin", wasi.Env()[0][1])
}

func TestBuild_CapacityFailureNamesStream(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		prefill  bool
		preopens []string
		want     string
	}{
		{name: "stdin", capacity: 1, prefill: true, want: "stdin"},
		{name: "stdout", capacity: 1, want: "stdout"},
		{name: "stderr", capacity: 2, want: "stderr"},
		{name: "preopen", capacity: 4, preopens: []string{"/a", "/b"}, want: `preopen "/b"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := resource.New(resource.WithCapacity(tt.capacity))
			if tt.prefill {
				_, err := table.Push(ClosedInputStream{})
				require.NoError(t, err)
			}
			before := table.Len()

			b := NewBuilder()
			for _, p := range tt.preopens {
				dir, err := OpenDir(t.TempDir(), DirPermsRead, FilePermsRead)
				require.NoError(t, err)
				b.PreopenedDir(dir, p)
			}

			_, err := b.Build(table)
			require.ErrorIs(t, err, wherrors.ErrExhausted)
			require.Contains(t, err.Error(), tt.want)
			require.Equal(t, before, table.Len())
		})
	}
}

func TestBuild_NetworkRules(t *testing.T) {
	end := uint16(8010)
	b := NewBuilder().
		InsertIPNetPortAny(netip.MustParsePrefix("10.0.0.0/8")).
		InsertIPNetPortRange(netip.MustParsePrefix("192.168.0.0/16"), 8000, &end).
		InsertIPNet(netip.MustParsePrefix("172.16.0.0/12"), 5432).
		InsertSocketAddr(netip.MustParseAddrPort("203.0.113.1:53"))
	require.NoError(t, b.InsertAddrWith(context.Background(), "db.internal:6379", staticResolver{
		"db.internal": {netip.MustParseAddr("10.200.0.9")},
	}))
	require.Error(t, b.InsertAddrWith(context.Background(), "nope.internal:1", staticResolver{}))

	wasi, err := b.Build(resource.New())
	require.NoError(t, err)
	n := wasi.Network()

	tests := []struct {
		addr string
		want bool
	}{
		{"10.1.1.1:1", true},
		{"192.168.1.1:8009", true},
		{"192.168.1.1:8010", false},
		{"172.20.0.1:5432", true},
		{"172.20.0.1:5433", false},
		{"203.0.113.1:53", true},
		{"203.0.113.2:53", false},
		{"10.200.0.9:6379", true},
		{"8.8.8.8:53", false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, n.IsAuthorized(netip.MustParseAddrPort(tt.addr)), tt.addr)
	}
}

func TestBuild_ClocksAndRandom(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seed := Seed128{Hi: 1, Lo: 2}
	insecure := NewInsecureRNG(Seed128{Hi: 7, Lo: 9})

	wasi, err := NewBuilder().
		WallClock(FixedWallClock{T: at}).
		InsecureRandom(insecure).
		InsecureRandomSeed(seed).
		Build(resource.New())
	require.NoError(t, err)

	require.Equal(t, at, wasi.WallClock().Now())
	require.Equal(t, seed, wasi.InsecureRandomSeed())
	require.Same(t, insecure, wasi.InsecureRandom())
	require.NotNil(t, wasi.SecureRandom())
	require.NotNil(t, wasi.MonotonicClock())
}

func TestBuild_LogsHandles(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	_, err := NewBuilder().WithLogger(zap.New(core)).Build(resource.New())
	require.NoError(t, err)

	var names []string
	for _, e := range logs.FilterMessage("registered resource").All() {
		names = append(names, e.ContextMap()["name"].(string))
	}
	require.Equal(t, "stdin,stdout,stderr", strings.Join(names, ","))
}

func TestHostState(t *testing.T) {
	out := NewMemoryOutputStream()
	state, err := NewHostState(NewBuilder().Stdout(out, IsATTYNo))
	require.NoError(t, err)

	s, err := resource.GetAs[OutputStream](state.Table(), state.Context().Stdout().Handle, resource.KindOutputStream)
	require.NoError(t, err)
	require.NoError(t, s.Write([]byte("hi")))
	require.Equal(t, "hi", out.String())

	require.NoError(t, state.Close())
	require.Equal(t, 0, state.Table().Len())
}

type closingStream struct {
	SinkOutputStream
	closed int
}

func (s *closingStream) Close() error {
	s.closed++
	return nil
}

func TestBuild_FailureClosesStreams(t *testing.T) {
	stdout, stderr := &closingStream{}, &closingStream{}
	dir, err := OpenDir(t.TempDir(), DirPermsRead, FilePermsRead)
	require.NoError(t, err)

	table := resource.New(resource.WithCapacity(3))
	_, err = NewBuilder().
		Stdout(stdout, IsATTYNo).
		Stderr(stderr, IsATTYNo).
		PreopenedDir(dir, "/data").
		Build(table)
	require.ErrorIs(t, err, wherrors.ErrExhausted)

	require.Equal(t, 0, table.Len())
	require.Equal(t, 1, stdout.closed, "pushed stream")
	require.Equal(t, 1, stderr.closed, "pushed stream")
	_, err = dir.ReadDir(".")
	require.Error(t, err, "staged directory is dropped")
}
