package snapshot

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-host/errors"
)

const pageSize = 1 << 16

// Capture copies the current state of every instance of inst. Memories are
// copied at their current size.
func Capture(ctx context.Context, inst Instantiation) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.PhaseSnapshot, errors.KindClosed, err, "capture cancelled")
	}

	instances := inst.Instances()
	snap := &Snapshot{globals: make([][]byte, 0, len(instances))}
	for i, in := range instances {
		for j, mem := range in.Memories() {
			size := mem.Size()
			view, ok := mem.Read(0, size)
			if !ok {
				return nil, errors.New(errors.PhaseSnapshot, errors.KindInvalidData).
					Resource(fmt.Sprintf("instance %d memory %d", i, j)).
					Detail("read %d bytes out of range", size).
					Build()
			}
			snap.memories = append(snap.memories, append([]byte{}, view...))
		}

		globals := in.Globals()
		buf := make([]byte, len(globals)*GlobalSize)
		for j, g := range globals {
			binary.LittleEndian.PutUint64(buf[j*GlobalSize:], g.Get())
		}
		snap.globals = append(snap.globals, buf)
	}
	return snap, nil
}

type target struct {
	memories []api.Memory
	globals  [][]api.Global
}

// shape checks the instance, memory and global counts of inst against snap.
func shape(phase errors.Phase, inst Instantiation, snap *Snapshot) (*target, error) {
	instances := inst.Instances()
	if len(instances) != snap.InstanceCount() {
		return nil, errors.ShapeMismatch(phase, "instances", snap.InstanceCount(), len(instances))
	}

	t := &target{globals: make([][]api.Global, len(instances))}
	for i, in := range instances {
		t.memories = append(t.memories, in.Memories()...)

		globals := in.Globals()
		if want := snap.GlobalCount(i); len(globals) != want || len(snap.globals[i])%GlobalSize != 0 {
			return nil, errors.ShapeMismatch(phase, fmt.Sprintf("instance %d globals", i), want, len(globals))
		}
		for j, g := range globals {
			if _, ok := g.(api.MutableGlobal); !ok {
				return nil, errors.TypeMismatch(phase, fmt.Sprintf("instance %d global %d", i, j), "mutable", "immutable")
			}
		}
		t.globals[i] = globals
	}
	if len(t.memories) != snap.MemoryCount() {
		return nil, errors.ShapeMismatch(phase, "memories", snap.MemoryCount(), len(t.memories))
	}
	return t, nil
}

// Restore writes snap into inst so that its visible state equals the
// snapshot. Every memory of inst must already be at least as large as the
// matching snapshot buffer; bytes past the buffer are zeroed.
//
// The shape of inst is validated before anything is written. On any error
// inst is left unmodified.
func Restore(ctx context.Context, inst Instantiation, snap *Snapshot) error {
	t, err := shape(errors.PhaseRestore, inst, snap)
	if err != nil {
		return err
	}
	for i, mem := range t.memories {
		if size := mem.Size(); uint64(size) < uint64(len(snap.memories[i])) {
			return errors.SizeMismatch(errors.PhaseRestore, fmt.Sprintf("memory %d", i), uint64(len(snap.memories[i])), uint64(size))
		}
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.PhaseRestore, errors.KindClosed, err, "restore cancelled")
	}

	for i, mem := range t.memories {
		data := snap.memories[i]
		mem.Write(0, data)
		if size := mem.Size(); size > uint32(len(data)) {
			tail, _ := mem.Read(uint32(len(data)), size-uint32(len(data)))
			clear(tail)
		}
	}
	for i, globals := range t.globals {
		buf := snap.globals[i]
		for j, g := range globals {
			g.(api.MutableGlobal).Set(binary.LittleEndian.Uint64(buf[j*GlobalSize:]))
		}
	}
	return nil
}

// Prepare grows every memory of inst that is smaller than its snapshot
// buffer. Growth goes through the instantiation's allocator, so the
// growth-limiting hook can refuse it. Instantiations implementing Binder
// have those decisions made with ctx.
func Prepare(ctx context.Context, inst Instantiation, snap *Snapshot) error {
	t, err := shape(errors.PhaseRestore, inst, snap)
	if err != nil {
		return err
	}
	if b, ok := inst.(Binder); ok {
		defer b.Bind(ctx)()
	}
	for i, mem := range t.memories {
		want := uint64(len(snap.memories[i]))
		have := uint64(mem.Size())
		if have >= want {
			continue
		}
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.PhaseRestore, errors.KindClosed, err, "prepare cancelled")
		}
		delta := (want - have + pageSize - 1) / pageSize
		if _, ok := mem.Grow(uint32(delta)); !ok {
			return errors.New(errors.PhaseRestore, errors.KindGrowthDenied).
				Resource(fmt.Sprintf("memory %d", i)).
				Expected("%d bytes", want).
				Actual("%d bytes", have).
				Build()
		}
	}
	return nil
}
