package snapshot

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

// GlobalSize is the number of bytes each global occupies in a snapshot.
const GlobalSize = 8

// Instance is one core instance whose state is captured.
type Instance interface {
	// Memories returns the memories the instance defines and exports, in
	// export order.
	Memories() []api.Memory
	// Globals returns the mutable globals the instance defines and
	// exports, in declaration order.
	Globals() []api.Global
}

// Instantiation is an ordered set of instances.
type Instantiation interface {
	Instances() []Instance
}

// Binder is implemented by instantiations whose memory growth can be tied
// to a caller's context. Prepare binds ctx while it grows memories.
type Binder interface {
	Bind(ctx context.Context) (release func())
}

// Snapshot holds one buffer per memory, across all instances in order,
// and one global buffer per instance. It is not modified after creation.
type Snapshot struct {
	memories [][]byte
	globals  [][]byte
}

// New returns a snapshot holding copies of memories and globals. Each
// globals buffer must be a multiple of GlobalSize long.
func New(memories, globals [][]byte) *Snapshot {
	return &Snapshot{memories: cloneAll(memories), globals: cloneAll(globals)}
}

func cloneAll(bufs [][]byte) [][]byte {
	out := make([][]byte, len(bufs))
	for i, b := range bufs {
		out[i] = append([]byte{}, b...)
	}
	return out
}

func (s *Snapshot) MemoryCount() int   { return len(s.memories) }
func (s *Snapshot) InstanceCount() int { return len(s.globals) }

// Memory returns a copy of the i-th memory buffer.
func (s *Snapshot) Memory(i int) []byte {
	return append([]byte{}, s.memories[i]...)
}

// MemorySize returns the length of the i-th memory buffer.
func (s *Snapshot) MemorySize(i int) int { return len(s.memories[i]) }

// Globals returns a copy of the i-th instance's global buffer.
func (s *Snapshot) Globals(i int) []byte {
	return append([]byte{}, s.globals[i]...)
}

// GlobalCount returns the number of globals recorded for instance i.
func (s *Snapshot) GlobalCount(i int) int { return len(s.globals[i]) / GlobalSize }

// Size returns the total number of bytes held.
func (s *Snapshot) Size() int {
	n := 0
	for _, m := range s.memories {
		n += len(m)
	}
	for _, g := range s.globals {
		n += len(g)
	}
	return n
}
