// Package preview2 builds the host capability context handed to a sandboxed
// instantiation.
//
// Configuration happens on a mutable Builder. Build consumes it, registers
// the stdio streams and preopened directories in the instantiation's
// resource table and returns an immutable Context:
//
//	dir, err := preview2.OpenDir("/srv/data", preview2.DirPermsRead, preview2.FilePermsRead)
//	if err != nil {
//	    return err
//	}
//
//	b := preview2.NewBuilder().
//	    InheritStdio().
//	    Env("HOME", "/data").
//	    Args("app", "--verbose").
//	    PreopenedDir(dir, "/data").
//	    InsertIPNetPortAny(netip.MustParsePrefix("10.0.0.0/8"))
//
//	table := resource.New()
//	wasi, err := b.Build(table)
//
// A Builder can be built exactly once; a second Build panics. After Build the
// builder holds fresh defaults again.
//
// # Defaults
//
// A fresh builder grants nothing: stdin is at end of stream, stdout and
// stderr discard their output, environment, arguments and preopens are empty
// and the network pool authorizes no address. Clocks are the host clocks,
// the secure RNG is crypto/rand and the insecure RNG is a PCG generator
// seeded from crypto/rand.
//
// # Host State
//
// Host-call surfaces in the sub-packages read the context through View.
// HostState is the default owner of a table and its context:
//
//	state, err := preview2.NewHostState(b)
//	defer state.Close()
//
// Sub-packages:
//
//   - cli: environment, arguments, stdio handles and terminal flags
//   - clocks: wall and monotonic clocks
//   - filesystem: preopens and file access beneath them
//   - io: stream reads and writes by handle
//   - random: secure, insecure and seed sources
//   - sockets: network authorization and TCP connect
//
// # Thread Safety
//
// A Builder is not safe for concurrent use. A built Context is immutable and
// can be read from any goroutine.
package preview2
