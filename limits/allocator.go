package limits

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero/experimental"
	"go.uber.org/zap"
)

// Stats counts growth decisions made by an allocator.
type Stats struct {
	granted atomic.Uint64
	denied  atomic.Uint64
}

func (s *Stats) Granted() uint64 { return s.granted.Load() }
func (s *Stats) Denied() uint64  { return s.denied.Load() }

// Allocator is a wazero memory allocator that asks a Limiter before every
// memory growth. The first allocation of a memory is its initial size and
// is not a growth.
type Allocator struct {
	ctx    context.Context
	lim    Limiter
	stats  *Stats
	mu     sync.Mutex
	active context.Context
}

// NewAllocator returns an allocator consulting lim with ctx. ctx should live
// as long as the instantiation: once it is done every growth is denied.
func NewAllocator(ctx context.Context, lim Limiter) *Allocator {
	return &Allocator{ctx: ctx, lim: lim, stats: &Stats{}}
}

// Stats returns the decision counters shared by every memory of a.
func (a *Allocator) Stats() *Stats { return a.stats }

// Bind makes growths consult the limiter with a context that ends when
// either ctx or the allocator's own context does, until release is called.
// Values are looked up in ctx. Binds nest; release restores the previous
// binding.
func (a *Allocator) Bind(ctx context.Context) (release func()) {
	bound, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(a.ctx, cancel)

	a.mu.Lock()
	prev := a.active
	a.active = bound
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		a.active = prev
		a.mu.Unlock()
		stop()
		cancel()
	}
}

// growthContext returns the context the next growth is decided with.
func (a *Allocator) growthContext() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active != nil && a.ctx.Err() == nil {
		return a.active
	}
	return a.ctx
}

func (a *Allocator) Allocate(capacity, maximum uint64) experimental.LinearMemory {
	return &linearMemory{alloc: a, capacity: capacity, maximum: maximum}
}

// WithLimiter installs lim as the memory allocator for instantiations made
// with the returned context.
func WithLimiter(ctx context.Context, lim Limiter) context.Context {
	return WithAllocator(ctx, NewAllocator(ctx, lim))
}

// WithAllocator installs a for instantiations made with the returned
// context.
func WithAllocator(ctx context.Context, a *Allocator) context.Context {
	return experimental.WithMemoryAllocator(ctx, a)
}

type linearMemory struct {
	alloc    *Allocator
	buf      []byte
	capacity uint64
	maximum  uint64
	started  bool
}

func (m *linearMemory) Reallocate(size uint64) []byte {
	if !m.started {
		m.started = true
		m.buf = make([]byte, size, max(size, m.capacity))
		return m.buf
	}

	current := uint64(len(m.buf))
	if size <= current {
		return m.buf[:size]
	}

	maximum := m.maximum
	if !MemoryGrowing(m.alloc.growthContext(), m.alloc.lim, current, size, &maximum) {
		m.alloc.stats.denied.Add(1)
		Logger().Debug("memory growth denied",
			zap.Uint64("current", current),
			zap.Uint64("desired", size))
		return nil
	}
	m.alloc.stats.granted.Add(1)

	if size <= uint64(cap(m.buf)) {
		m.buf = m.buf[:size]
		return m.buf
	}
	next := make([]byte, size, max(size, min(2*uint64(cap(m.buf)), m.maximum)))
	copy(next, m.buf)
	m.buf = next
	return m.buf
}

func (m *linearMemory) Free() {
	m.buf = nil
}
