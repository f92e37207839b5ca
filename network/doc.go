// Package network holds the capability pool that decides which socket
// addresses a sandboxed instance may bind or connect to.
//
// A Pool is pure data. Authorizations are only ever added:
//
//	pool := network.NewPool()
//	pool.InsertNetwork(netip.MustParsePrefix("10.0.0.0/8"), network.AnyPort())
//	pool.InsertNetwork(netip.MustParsePrefix("192.168.0.0/16"), network.PortRange(8000, &end))
//	pool.InsertAddr(netip.MustParseAddrPort("203.0.113.7:443"))
//
//	pool.IsAuthorized(netip.MustParseAddrPort("10.1.2.3:22")) // true
//
// Host names are resolved when they are inserted (InsertHost), never when an
// address is checked, so IsAuthorized does no I/O.
//
// Built host contexts expose the pool through Authorizer, a read-only view
// over a private copy.
package network
