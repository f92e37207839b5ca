// Package wasmhost is the host side of a wazero sandbox: the capabilities a
// guest is given and the state it leaves behind.
//
// # Architecture Overview
//
//	wasmhost/
//	├── errors/          Structured error taxonomy (phase + kind)
//	├── resource/        Type-checked resource table with non-reusable handles
//	├── network/         Capability pool of IP networks and ports
//	├── wasi/preview2/   Host context builder, context and host-call surfaces
//	├── limits/          Memory and table growth limiting
//	├── snapshot/        Capture, restore and persist memories and globals
//	├── engine/          wazero runtime and ordered instantiations
//	└── cmd/wasmhost/    run, restore and inspect from the command line
//
// # Quick Start
//
// Build a context, instantiate, snapshot and fork:
//
//	eng, err := engine.New(ctx, engine.Config{CloseOnContextDone: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	mod, err := eng.Compile(ctx, "app", wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	state, err := preview2.NewHostState(preview2.NewBuilder().
//	    InheritStdio().
//	    Env("MODE", "fast").
//	    InsertIPNet(netip.MustParsePrefix("10.0.0.0/8"), 5432))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := eng.Instantiate(ctx, state, limits.Quota{MaxMemoryBytes: 64 << 20}, mod)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	if _, err := inst.Call(ctx, 0, "step"); err != nil {
//	    log.Fatal(err)
//	}
//	snap, err := snapshot.Capture(ctx, inst)
//
// A second instantiation of the same modules, with a freshly built context,
// continues from the snapshot after snapshot.Prepare and snapshot.Restore.
//
// # Capabilities
//
// A guest holds nothing it was not granted. The builder defaults to closed
// stdin, discarded output, an empty environment, no preopened directories
// and no network. Build consumes the builder; the resulting Context never
// changes.
//
// # Thread Safety
//
// Engine, Table and the frozen network authorizer are safe for concurrent
// use. Builder and Instantiation are not and should be used by a single
// goroutine.
package wasmhost
