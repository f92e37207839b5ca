package resource

import (
	"io"
	"math"
	"sort"
	"strconv"
	"sync"

	"go.uber.org/multierr"

	"github.com/wippyai/wasm-host/errors"
)

// Table maps opaque handles to heterogeneous host resources.
//
// Handles come from a monotonically increasing counter and are never
// reissued, so a removed handle stays invalid for the lifetime of the table.
type Table struct {
	entries   map[Handle]Resource
	observers map[uint64]Observer
	next      Handle
	nextObs   uint64
	capacity  int
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    bool
}

// Option configures a Table.
type Option func(*Table)

// WithCapacity bounds the number of live entries. Zero means unbounded.
func WithCapacity(n int) Option {
	return func(t *Table) {
		t.capacity = n
	}
}

// New creates an empty table.
func New(opts ...Option) *Table {
	t := &Table{
		entries:   make(map[Handle]Resource),
		observers: make(map[uint64]Observer),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Push stores r and returns a fresh handle.
func (t *Table) Push(r Resource) (Handle, error) {
	if r == nil {
		return 0, errors.InvalidInput(errors.PhaseTable, "nil resource")
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, errors.New(errors.PhaseTable, errors.KindClosed).Detail("table closed").Build()
	}
	if t.capacity > 0 && len(t.entries) >= t.capacity {
		t.mu.Unlock()
		return 0, errors.Exhausted(errors.PhaseTable, "resource table", uint64(t.capacity))
	}
	if t.next == math.MaxUint32 {
		t.mu.Unlock()
		return 0, errors.Exhausted(errors.PhaseTable, "handle space", math.MaxUint32)
	}
	t.next++
	h := t.next
	t.entries[h] = r
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Handle: h, Kind: r.ResourceKind(), Value: r})
	return h, nil
}

// Get returns the resource behind h if it was registered as kind.
func (t *Table) Get(h Handle, kind Kind) (Resource, error) {
	t.mu.RLock()
	r, ok := t.entries[h]
	t.mu.RUnlock()
	if !ok {
		return nil, notFound(h)
	}
	if actual := r.ResourceKind(); actual != kind {
		return nil, mismatch(h, kind, actual)
	}
	return r, nil
}

// Remove invalidates h permanently and hands the resource back to the caller.
// The resource is not dropped; the caller owns it from here on.
func (t *Table) Remove(h Handle, kind Kind) (Resource, error) {
	t.mu.Lock()
	r, ok := t.entries[h]
	if !ok {
		t.mu.Unlock()
		return nil, notFound(h)
	}
	if actual := r.ResourceKind(); actual != kind {
		t.mu.Unlock()
		return nil, mismatch(h, kind, actual)
	}
	delete(t.entries, h)
	t.mu.Unlock()

	t.notify(Event{Type: EventRemoved, Handle: h, Kind: kind, Value: r})
	return r, nil
}

// Entries lists live (handle, kind) pairs ordered by handle.
func (t *Table) Entries() []Entry {
	t.mu.RLock()
	out := make([]Entry, 0, len(t.entries))
	for h, r := range t.entries {
		out = append(out, Entry{Handle: h, Kind: r.ResourceKind()})
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// Len returns the number of live resources.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Subscribe registers an observer for lifecycle events and returns a
// function that removes it.
func (t *Table) Subscribe(o Observer) (unsubscribe func()) {
	t.obsMu.Lock()
	id := t.nextObs
	t.nextObs++
	t.observers[id] = o
	t.obsMu.Unlock()

	return func() {
		t.obsMu.Lock()
		delete(t.observers, id)
		t.obsMu.Unlock()
	}
}

// Close drops every live resource and stops accepting pushes.
// Resources implementing io.Closer are closed and their errors combined;
// other Droppers are dropped.
func (t *Table) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	entries := t.entries
	t.entries = make(map[Handle]Resource)
	t.mu.Unlock()

	handles := make([]Handle, 0, len(entries))
	for h := range entries {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })

	var err error
	for _, h := range handles {
		r := entries[h]
		switch v := r.(type) {
		case io.Closer:
			err = multierr.Append(err, v.Close())
		case Dropper:
			v.Drop()
		}
		t.notify(Event{Type: EventDropped, Handle: h, Kind: r.ResourceKind(), Value: r})
	}
	return err
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}

func handleName(h Handle) string {
	return "handle " + strconv.FormatUint(uint64(h), 10)
}

func notFound(h Handle) error {
	return errors.NotFound(errors.PhaseTable, "resource", handleName(h))
}

func mismatch(h Handle, expected, actual Kind) error {
	return errors.TypeMismatch(errors.PhaseTable, handleName(h), expected.String(), actual.String())
}

// GetAs returns the resource behind h as T.
func GetAs[T Resource](t *Table, h Handle, kind Kind) (T, error) {
	var zero T
	r, err := t.Get(h, kind)
	if err != nil {
		return zero, err
	}
	v, ok := r.(T)
	if !ok {
		return zero, errors.New(errors.PhaseTable, errors.KindTypeMismatch).
			Resource(handleName(h)).
			Expected("%T", zero).
			Actual("%T", r).
			Build()
	}
	return v, nil
}

// RemoveAs removes h and returns its resource as T.
// The handle stays registered when the stored value is not a T.
func RemoveAs[T Resource](t *Table, h Handle, kind Kind) (T, error) {
	var zero T
	if _, err := GetAs[T](t, h, kind); err != nil {
		return zero, err
	}
	r, err := t.Remove(h, kind)
	if err != nil {
		return zero, err
	}
	return r.(T), nil
}
