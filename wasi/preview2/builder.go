package preview2

import (
	"context"
	"io"
	"net/netip"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/network"
	"github.com/wippyai/wasm-host/resource"
)

type stdinSlot struct {
	stream InputStream
	isatty IsATTY
}

type stdoutSlot struct {
	stream OutputStream
	isatty IsATTY
}

type preopenSlot struct {
	dir  *Dir
	path string
}

// Builder stages the configuration of a Context. It is consumed by Build and
// cannot be built twice.
type Builder struct {
	wallClock          WallClock
	monotonicClock     MonotonicClock
	random             RNG
	insecureRandom     RNG
	pool               *network.Pool
	logger             *zap.Logger
	stdin              stdinSlot
	stdout             stdoutSlot
	stderr             stdoutSlot
	env                [][2]string
	args               []string
	preopens           []preopenSlot
	insecureRandomSeed Seed128
	built              bool
}

// NewBuilder returns a builder with the default capability set: closed
// stdin, discarding stdout and stderr, no environment, arguments,
// preopens or network access, host clocks and freshly seeded RNGs.
func NewBuilder() *Builder {
	b := &Builder{logger: zap.NewNop()}
	b.reset()
	return b
}

func (b *Builder) reset() {
	*b = Builder{
		wallClock:          HostWallClock(),
		monotonicClock:     HostMonotonicClock(),
		random:             SecureRNG(),
		insecureRandom:     NewInsecureRNG(RandomSeed128()),
		insecureRandomSeed: RandomSeed128(),
		pool:               network.NewPool(),
		logger:             b.logger,
		stdin:              stdinSlot{stream: ClosedInputStream{}},
		stdout:             stdoutSlot{stream: SinkOutputStream{}},
		stderr:             stdoutSlot{stream: SinkOutputStream{}},
		built:              b.built,
	}
}

// WithLogger sets the logger Build reports issued handles to.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	if l == nil {
		l = zap.NewNop()
	}
	b.logger = l
	return b
}

func (b *Builder) Stdin(s InputStream, isatty IsATTY) *Builder {
	b.stdin = stdinSlot{stream: s, isatty: isatty}
	return b
}

func (b *Builder) Stdout(s OutputStream, isatty IsATTY) *Builder {
	b.stdout = stdoutSlot{stream: s, isatty: isatty}
	return b
}

func (b *Builder) Stderr(s OutputStream, isatty IsATTY) *Builder {
	b.stderr = stdoutSlot{stream: s, isatty: isatty}
	return b
}

func (b *Builder) InheritStdin() *Builder {
	return b.Stdin(Stdin(), detectTTY(os.Stdin))
}

func (b *Builder) InheritStdout() *Builder {
	return b.Stdout(Stdout(), detectTTY(os.Stdout))
}

func (b *Builder) InheritStderr() *Builder {
	return b.Stderr(Stderr(), detectTTY(os.Stderr))
}

// InheritStdio connects all three streams to the host process.
func (b *Builder) InheritStdio() *Builder {
	return b.InheritStdin().InheritStdout().InheritStderr()
}

// Env appends one variable. Keys may repeat.
func (b *Builder) Env(key, value string) *Builder {
	b.env = append(b.env, [2]string{key, value})
	return b
}

func (b *Builder) Envs(pairs [][2]string) *Builder {
	b.env = append(b.env, pairs...)
	return b
}

func (b *Builder) Arg(arg string) *Builder {
	b.args = append(b.args, arg)
	return b
}

func (b *Builder) Args(args ...string) *Builder {
	b.args = append(b.args, args...)
	return b
}

// PreopenedDir mounts dir at guestPath. The builder takes ownership of dir.
func (b *Builder) PreopenedDir(dir *Dir, guestPath string) *Builder {
	b.preopens = append(b.preopens, preopenSlot{dir: dir, path: guestPath})
	return b
}

func (b *Builder) SecureRandom(rng RNG) *Builder {
	b.random = rng
	return b
}

func (b *Builder) InsecureRandom(rng RNG) *Builder {
	b.insecureRandom = rng
	return b
}

func (b *Builder) InsecureRandomSeed(seed Seed128) *Builder {
	b.insecureRandomSeed = seed
	return b
}

func (b *Builder) WallClock(c WallClock) *Builder {
	b.wallClock = c
	return b
}

func (b *Builder) MonotonicClock(c MonotonicClock) *Builder {
	b.monotonicClock = c
	return b
}

// InheritNetwork authorizes every IPv4 and IPv6 address on every port.
func (b *Builder) InheritNetwork() *Builder {
	b.pool.InsertNetwork(netip.PrefixFrom(netip.IPv4Unspecified(), 0), network.AnyPort())
	b.pool.InsertNetwork(netip.PrefixFrom(netip.IPv6Unspecified(), 0), network.AnyPort())
	return b
}

func (b *Builder) InsertIPNetPortAny(prefix netip.Prefix) *Builder {
	b.pool.InsertNetwork(prefix, network.AnyPort())
	return b
}

// InsertIPNetPortRange authorizes ports [start, end) of prefix. A nil end
// leaves the range open.
func (b *Builder) InsertIPNetPortRange(prefix netip.Prefix, start uint16, end *uint16) *Builder {
	b.pool.InsertNetwork(prefix, network.PortRange(start, end))
	return b
}

func (b *Builder) InsertIPNet(prefix netip.Prefix, port uint16) *Builder {
	b.pool.InsertNetwork(prefix, network.SinglePort(port))
	return b
}

func (b *Builder) InsertSocketAddr(addr netip.AddrPort) *Builder {
	b.pool.InsertAddr(addr)
	return b
}

// InsertAddr resolves hostport now and authorizes every resulting address.
func (b *Builder) InsertAddr(ctx context.Context, hostport string) error {
	return b.pool.InsertHost(ctx, hostport, nil)
}

// InsertAddrWith is InsertAddr with an explicit resolver.
func (b *Builder) InsertAddrWith(ctx context.Context, hostport string, resolver network.Resolver) error {
	return b.pool.InsertHost(ctx, hostport, resolver)
}

// Build registers the staged stdio streams and preopened directories in
// table and returns the resulting Context. The builder is reset to defaults
// and refuses any further Build; calling it twice panics.
//
// If a registration fails, every entry already pushed is removed again and
// the staged streams and directories are closed.
func (b *Builder) Build(table *resource.Table) (*Context, error) {
	if b.built {
		panic(errors.ContractViolation(errors.PhaseBuild, "Builder.Build called more than once"))
	}
	staged := *b
	b.built = true
	b.reset()

	log := staged.logger
	var pushed []resource.Entry
	rollback := func() {
		for _, e := range pushed {
			_, _ = table.Remove(e.Handle, e.Kind)
		}
		release(staged.stdin.stream)
		release(staged.stdout.stream)
		release(staged.stderr.stream)
		for _, p := range staged.preopens {
			p.dir.Drop()
		}
	}
	push := func(r resource.Resource, what string) (resource.Handle, error) {
		h, err := table.Push(r)
		if err != nil {
			rollback()
			return 0, errors.Context(errors.PhaseBuild, what, err)
		}
		pushed = append(pushed, resource.Entry{Handle: h, Kind: r.ResourceKind()})
		log.Debug("registered resource",
			zap.String("name", what),
			zap.Uint32("handle", uint32(h)),
			zap.Stringer("kind", r.ResourceKind()))
		return h, nil
	}

	stdin, err := push(staged.stdin.stream, "stdin")
	if err != nil {
		return nil, err
	}
	stdout, err := push(staged.stdout.stream, "stdout")
	if err != nil {
		return nil, err
	}
	stderr, err := push(staged.stderr.stream, "stderr")
	if err != nil {
		return nil, err
	}

	preopens := make([]Preopen, 0, len(staged.preopens))
	for _, p := range staged.preopens {
		h, err := push(p.dir, "preopen "+strconv.Quote(p.path))
		if err != nil {
			return nil, err
		}
		preopens = append(preopens, Preopen{Handle: h, Path: p.path})
	}

	log.Debug("host context built",
		zap.Int("env", len(staged.env)),
		zap.Int("args", len(staged.args)),
		zap.Int("preopens", len(preopens)),
		zap.Int("network_rules", staged.pool.Len()))

	return &Context{
		stdin:              StdioInput{Handle: stdin, IsATTY: staged.stdin.isatty},
		stdout:             StdioOutput{Handle: stdout, IsATTY: staged.stdout.isatty},
		stderr:             StdioOutput{Handle: stderr, IsATTY: staged.stderr.isatty},
		env:                staged.env,
		args:               staged.args,
		preopens:           preopens,
		random:             staged.random,
		insecureRandom:     staged.insecureRandom,
		insecureRandomSeed: staged.insecureRandomSeed,
		wallClock:          staged.wallClock,
		monotonicClock:     staged.monotonicClock,
		network:            staged.pool.Frozen(),
	}, nil
}

// release closes r the way Table.Close would.
func release(r resource.Resource) {
	switch v := r.(type) {
	case io.Closer:
		_ = v.Close()
	case resource.Dropper:
		v.Drop()
	}
}
