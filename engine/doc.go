// Package engine runs core WebAssembly modules on wazero with a host
// context attached.
//
// # Flow
//
//  1. New creates an Engine around one wazero runtime and registers
//     wasi_snapshot_preview1 in it.
//  2. Engine.Compile compiles a module and records which memories and
//     mutable globals it defines and exports.
//  3. Engine.Instantiate instantiates one or more modules against a
//     preview2.View. The view's context supplies arguments, environment,
//     stdio, preopened directories, clocks and randomness; the limiter
//     decides every memory growth.
//  4. Instantiation.Call invokes exports. Instantiation.Close releases the
//     modules and the view.
//
// An Instantiation satisfies snapshot.Instantiation, so its state can be
// captured and restored into another Instantiation of the same modules.
//
// # Naming
//
// Modules are instantiated without a name, so a compiled module can be
// instantiated any number of times in one runtime. They cannot import one
// another.
//
// # Thread Safety
//
// Engine and Module are safe for concurrent use. An Instantiation is not:
// calls, captures and restores against it must not overlap.
//
// # Known Limitations
//
// Table growth is not intercepted; wazero exposes no hook for it.
// Memory64 is not supported by wazero.
package engine
