package engine

import (
	"context"
	"io"
	"strconv"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/resource"
	"github.com/wippyai/wasm-host/wasi/preview2"
)

const (
	ebadf     = 8          // POSIX EBADF error code
	invalidFD = 0xFFFFFFFF // -1 as uint32
)

// instantiateWASI registers WASI preview1 together with the stubs that
// component adapter output imports from the same module.
func instantiateWASI(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	builder := r.NewHostModuleBuilder(wasi_snapshot_preview1.ModuleName)
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, _ []uint64) {
		}), nil, nil).
		Export("reset_adapter_state")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = ebadf
		}), []api.ValueType{api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}).
		Export("adapter_close_badfd")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = invalidFD
		}), []api.ValueType{api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}).
		Export("adapter_open_badfd")

	return builder.Instantiate(ctx)
}

// moduleConfig exposes the capabilities of view's context to preview1
// imports. Start functions are not run; callers invoke them through Call.
func moduleConfig(view preview2.View) (wazero.ModuleConfig, error) {
	wasi := view.Context()
	table := view.Table()

	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions().
		WithArgs(wasi.Args()...).
		WithRandSource(wasi.SecureRandom())

	for _, kv := range wasi.Env() {
		cfg = cfg.WithEnv(kv[0], kv[1])
	}

	stdin, err := resource.GetAs[preview2.InputStream](table, wasi.Stdin().Handle, resource.KindInputStream)
	if err != nil {
		return nil, err
	}
	stdout, err := resource.GetAs[preview2.OutputStream](table, wasi.Stdout().Handle, resource.KindOutputStream)
	if err != nil {
		return nil, err
	}
	stderr, err := resource.GetAs[preview2.OutputStream](table, wasi.Stderr().Handle, resource.KindOutputStream)
	if err != nil {
		return nil, err
	}
	cfg = cfg.
		WithStdin(streamReader{stdin}).
		WithStdout(streamWriter{stdout}).
		WithStderr(streamWriter{stderr})

	wall := wasi.WallClock()
	cfg = cfg.WithWalltime(func() (int64, int32) {
		t := wall.Now()
		return t.Unix(), int32(t.Nanosecond())
	}, sys.ClockResolution(max(1, wall.Resolution().Nanoseconds())))

	mono := wasi.MonotonicClock()
	cfg = cfg.WithNanotime(func() int64 {
		return int64(mono.Now())
	}, sys.ClockResolution(max(1, mono.Resolution())))

	fsCfg := wazero.NewFSConfig()
	for _, p := range wasi.Preopens() {
		dir, err := resource.GetAs[*preview2.Dir](table, p.Handle, resource.KindDirectory)
		if err != nil {
			return nil, err
		}
		switch {
		case !dir.Perms().Has(preview2.DirPermsRead):
			Logger().Debug("preopen not mounted: not readable", zap.String("path", p.Path))
			continue
		case dir.Perms().Has(preview2.DirPermsMutate) && dir.FilePerms().Has(preview2.FilePermsWrite):
			// Writable mounts are reopened by path; refuse if it moved.
			if err := dir.CheckHostPath(); err != nil {
				return nil, errors.Context(errors.PhaseRuntime, "preopen "+strconv.Quote(p.Path), err)
			}
			fsCfg = fsCfg.WithDirMount(dir.Name(), p.Path)
		default:
			fsCfg = fsCfg.WithFSMount(dir.Root().FS(), p.Path)
		}
	}
	return cfg.WithFSConfig(fsCfg), nil
}

// streamReader adapts an InputStream to io.Reader.
type streamReader struct {
	s preview2.InputStream
}

func (r streamReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	data, err := r.s.Read(uint64(len(p)))
	if err != nil {
		if preview2.IsClosed(err) {
			return 0, io.EOF
		}
		return 0, err
	}
	return copy(p, data), nil
}

// streamWriter adapts an OutputStream to io.Writer, splitting writes to the
// stream's budget.
type streamWriter struct {
	s preview2.OutputStream
}

func (w streamWriter) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		budget, err := w.s.CheckWrite()
		if err != nil {
			return written, err
		}
		n := min(uint64(len(p)-written), max(budget, 1))
		if err := w.s.Write(p[written : written+int(n)]); err != nil {
			return written, err
		}
		written += int(n)
	}
	return written, w.s.Flush()
}
