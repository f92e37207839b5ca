package preview2

import (
	"github.com/wippyai/wasm-host/network"
	"github.com/wippyai/wasm-host/resource"
)

// Preopen is a directory handle and the guest path it is mounted at.
type Preopen struct {
	Path   string
	Handle resource.Handle
}

// Context is the immutable capability set of one instantiation, produced by
// Builder.Build. Accessors return copies.
type Context struct {
	wallClock          WallClock
	monotonicClock     MonotonicClock
	random             RNG
	insecureRandom     RNG
	network            network.Authorizer
	env                [][2]string
	args               []string
	preopens           []Preopen
	insecureRandomSeed Seed128
	stdin              StdioInput
	stdout             StdioOutput
	stderr             StdioOutput
}

// Env returns the environment as ordered key/value pairs. Duplicate keys are
// kept in insertion order.
func (c *Context) Env() [][2]string {
	return append([][2]string(nil), c.env...)
}

// Getenv returns the last value set for key.
func (c *Context) Getenv(key string) (string, bool) {
	for i := len(c.env) - 1; i >= 0; i-- {
		if c.env[i][0] == key {
			return c.env[i][1], true
		}
	}
	return "", false
}

func (c *Context) Args() []string {
	return append([]string(nil), c.args...)
}

func (c *Context) Preopens() []Preopen {
	return append([]Preopen(nil), c.preopens...)
}

func (c *Context) Stdin() StdioInput   { return c.stdin }
func (c *Context) Stdout() StdioOutput { return c.stdout }
func (c *Context) Stderr() StdioOutput { return c.stderr }

func (c *Context) SecureRandom() RNG              { return c.random }
func (c *Context) InsecureRandom() RNG            { return c.insecureRandom }
func (c *Context) InsecureRandomSeed() Seed128    { return c.insecureRandomSeed }
func (c *Context) WallClock() WallClock           { return c.wallClock }
func (c *Context) MonotonicClock() MonotonicClock { return c.monotonicClock }

// Network returns the frozen network authorizations.
func (c *Context) Network() network.Authorizer { return c.network }

// View gives host-call implementations access to an instantiation's table
// and context.
type View interface {
	Table() *resource.Table
	Context() *Context
}

// HostState owns the table and context of one instantiation.
type HostState struct {
	table *resource.Table
	ctx   *Context
}

// NewHostState builds b into a fresh table.
func NewHostState(b *Builder, opts ...resource.Option) (*HostState, error) {
	table := resource.New(opts...)
	ctx, err := b.Build(table)
	if err != nil {
		_ = table.Close()
		return nil, err
	}
	return &HostState{table: table, ctx: ctx}, nil
}

func (s *HostState) Table() *resource.Table { return s.table }
func (s *HostState) Context() *Context      { return s.ctx }

// Close drops every resource still in the table.
func (s *HostState) Close() error {
	return s.table.Close()
}
