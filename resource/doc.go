// Package resource provides the capability handle table shared by host-call
// implementations of one instantiation.
//
// Resources are host values (streams, directories, sockets) that a sandboxed
// guest can only reach through an opaque integer handle. The table maps
// those handles to values and checks, on every access, that the handle is
// still live and that it was registered as the capability kind the caller
// expects.
//
// # Handle Table
//
//	table := resource.New()
//
//	// Insert a value, get a handle
//	h, err := table.Push(dir)
//
//	// Kind-checked retrieval
//	r, err := table.Get(h, resource.KindDirectory)    // ok
//	r, err := table.Get(h, resource.KindInputStream)  // type_mismatch
//
//	// Remove and take ownership back
//	r, err := table.Remove(h, resource.KindDirectory)
//	r, err := table.Get(h, resource.KindDirectory)    // not_found, forever
//
// Typed helpers avoid the type assertion:
//
//	dir, err := resource.GetAs[*preview2.Dir](table, h, resource.KindDirectory)
//
// # Handle Lifetime
//
// Handles are allocated from a monotonically increasing counter and are never
// reissued. A handle that was removed can therefore never alias a newer
// resource. Handle 0 is never issued.
//
// # Observers
//
// Register observers to track resource lifecycle events:
//
//	stop := table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("resource %d %v", e.Handle, e.Type)
//	}))
//	defer stop()
//
// # Memory Management
//
// Removing a handle returns ownership of the value to the caller; the table
// does not drop it. Close drops everything still registered, closing values
// that implement io.Closer and calling Drop on values that implement Dropper.
//
// A table belongs to exactly one instantiation and must not be shared.
package resource
