package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/internal/wasmbin"
)

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages caps every memory in pages (64KB each).
	// 0 means the wazero default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// CloseOnContextDone stops a running guest call when its context is
	// cancelled or times out.
	CloseOnContextDone bool
}

// Engine compiles and instantiates modules in a single wazero runtime.
type Engine struct {
	runtime wazero.Runtime
}

// New creates an engine with WASI preview1 registered.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig().
		WithCloseOnContextDone(cfg.CloseOnContextDone)
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	if _, err := instantiateWASI(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindInstantiation, err, "instantiate WASI")
	}
	return &Engine{runtime: rt}, nil
}

// Runtime returns the underlying wazero runtime.
func (e *Engine) Runtime() wazero.Runtime {
	return e.runtime
}

func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Module is a compiled core module.
type Module struct {
	compiled wazero.CompiledModule
	name     string
	memories []string
	globals  []string
}

// Compile compiles wasm and records its state layout. name is used in logs
// and errors only.
func (e *Engine) Compile(ctx context.Context, name string, wasm []byte) (*Module, error) {
	layout, err := wasmbin.Scan(wasm)
	if err != nil {
		return nil, errors.Load("scan "+name, err)
	}

	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile "+name, err)
	}

	m := &Module{
		compiled: compiled,
		name:     name,
		memories: layout.MemoryExports(),
		globals:  layout.MutableGlobalExports(),
	}
	Logger().Debug("module compiled",
		zap.String("module", name),
		zap.Strings("memories", m.memories),
		zap.Strings("globals", m.globals))
	return m, nil
}

func (m *Module) Name() string { return m.name }

// MemoryExports returns the export names of the memories the module defines,
// in export order.
func (m *Module) MemoryExports() []string { return append([]string(nil), m.memories...) }

// GlobalExports returns the export names of the mutable globals the module
// defines, in declaration order.
func (m *Module) GlobalExports() []string { return append([]string(nil), m.globals...) }

// Close releases the compiled code. Instantiations already made are not
// affected.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}
