package engine

import (
	"context"
	"fmt"
	"io"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/limits"
	"github.com/wippyai/wasm-host/snapshot"
	"github.com/wippyai/wasm-host/wasi/preview2"
)

// Instance is one instantiated module.
type Instance struct {
	module   api.Module
	source   *Module
	memories []api.Memory
	globals  []api.Global
}

// Module returns the wazero module backing the instance.
func (i *Instance) Module() api.Module { return i.module }

// Source returns the compiled module the instance was made from.
func (i *Instance) Source() *Module { return i.source }

func (i *Instance) Memories() []api.Memory { return i.memories }
func (i *Instance) Globals() []api.Global  { return i.globals }

// Instantiation is an ordered set of instances sharing one host state.
type Instantiation struct {
	view      preview2.View
	alloc     *limits.Allocator
	cancel    context.CancelFunc
	instances []*Instance
}

// Instantiate instantiates modules in order against view. Every memory
// growth of every instance is decided by limiter; a nil limiter allows up to
// the declared maximum.
//
// The Instantiation owns view from here on: Close closes it if it is an
// io.Closer, and so does a failed Instantiate.
func (e *Engine) Instantiate(ctx context.Context, view preview2.View, limiter limits.Limiter, modules ...*Module) (*Instantiation, error) {
	// The allocator's context ends at Close, not when ctx does.
	life, cancel := context.WithCancel(context.WithoutCancel(ctx))
	inst := &Instantiation{
		view:   view,
		alloc:  limits.NewAllocator(life, limiter),
		cancel: cancel,
	}

	cfg, err := moduleConfig(view)
	if err != nil {
		_ = inst.Close(ctx)
		return nil, errors.Instantiation(err)
	}

	ictx := limits.WithAllocator(ctx, inst.alloc)
	for _, m := range modules {
		mod, err := e.runtime.InstantiateModule(ictx, m.compiled, cfg)
		if err != nil {
			_ = inst.Close(ctx)
			return nil, errors.Context(errors.PhaseRuntime, m.name, errors.Instantiation(err))
		}

		in := &Instance{module: mod, source: m}
		for _, name := range m.memories {
			in.memories = append(in.memories, mod.ExportedMemory(name))
		}
		for _, name := range m.globals {
			in.globals = append(in.globals, mod.ExportedGlobal(name))
		}
		inst.instances = append(inst.instances, in)
	}

	Logger().Debug("instantiated",
		zap.Int("instances", len(inst.instances)),
		zap.Int("resources", view.Table().Len()))
	return inst, nil
}

// Instances returns the instances in instantiation order.
func (i *Instantiation) Instances() []snapshot.Instance {
	out := make([]snapshot.Instance, len(i.instances))
	for n, in := range i.instances {
		out[n] = in
	}
	return out
}

// Instance returns the n-th instance.
func (i *Instantiation) Instance(n int) *Instance { return i.instances[n] }

func (i *Instantiation) View() preview2.View { return i.view }

// Stats returns the growth decisions made for this instantiation.
func (i *Instantiation) Stats() *limits.Stats { return i.alloc.Stats() }

// Bind routes growth decisions through ctx until release is called, so a
// limiter that waits gives up when ctx is cancelled.
func (i *Instantiation) Bind(ctx context.Context) (release func()) {
	return i.alloc.Bind(ctx)
}

// Call invokes export on the instance at index instance. Memory growth
// during the call is decided with ctx.
func (i *Instantiation) Call(ctx context.Context, instance int, export string, params ...uint64) ([]uint64, error) {
	if instance < 0 || instance >= len(i.instances) {
		return nil, errors.NotFound(errors.PhaseRuntime, "instance", fmt.Sprintf("instance %d", instance))
	}
	fn := i.instances[instance].module.ExportedFunction(export)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "export", export)
	}
	defer i.Bind(ctx)()
	return fn.Call(ctx, params...)
}

// Close closes every instance and then the view. Later growth attempts by
// anything still holding a memory are denied.
func (i *Instantiation) Close(ctx context.Context) error {
	i.cancel()
	var err error
	for n := len(i.instances) - 1; n >= 0; n-- {
		err = multierr.Append(err, i.instances[n].module.Close(ctx))
	}
	i.instances = nil
	if c, ok := i.view.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	return err
}
