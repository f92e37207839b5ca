package network

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"

	"github.com/wippyai/wasm-host/errors"
)

// PortPolicy selects which ports of an authorized network are granted.
type PortPolicy struct {
	end    *uint16
	start  uint16
	any    bool
	single bool
}

// AnyPort grants every port.
func AnyPort() PortPolicy {
	return PortPolicy{any: true}
}

// SinglePort grants exactly one port.
func SinglePort(port uint16) PortPolicy {
	end := uint32(port) + 1
	if end > 0xFFFF {
		return PortPolicy{start: port, single: true}
	}
	e := uint16(end)
	return PortPolicy{start: port, end: &e, single: true}
}

// PortRange grants ports in [start, end). A nil end grants every port from
// start upwards.
func PortRange(start uint16, end *uint16) PortPolicy {
	p := PortPolicy{start: start}
	if end != nil {
		e := *end
		p.end = &e
	}
	return p
}

// Allows reports whether port is granted by the policy.
func (p PortPolicy) Allows(port uint16) bool {
	if p.any {
		return true
	}
	if port < p.start {
		return false
	}
	return p.end == nil || port < *p.end
}

func (p PortPolicy) String() string {
	switch {
	case p.any:
		return "any"
	case p.single:
		return strconv.Itoa(int(p.start))
	case p.end == nil:
		return strconv.Itoa(int(p.start)) + ".."
	case uint32(*p.end) == uint32(p.start)+1:
		return strconv.Itoa(int(p.start))
	default:
		return fmt.Sprintf("%d..%d", p.start, *p.end)
	}
}

// Record is one authorization entry of a Pool.
type Record struct {
	Prefix netip.Prefix
	Ports  PortPolicy
}

func (r Record) String() string {
	return r.Prefix.String() + ":" + r.Ports.String()
}

// Authorizer answers whether a socket address may be used. It has no
// mutating methods, so it is what a built host context hands out.
type Authorizer interface {
	IsAuthorized(addr netip.AddrPort) bool
}

// Resolver resolves host names at configuration time.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Pool is an additive set of network authorizations. There is no way to
// revoke an entry once inserted.
type Pool struct {
	records []Record
	addrs   []netip.AddrPort
}

// NewPool creates an empty pool that authorizes nothing.
func NewPool() *Pool {
	return &Pool{}
}

// InsertNetwork authorizes every address in prefix under the port policy.
func (p *Pool) InsertNetwork(prefix netip.Prefix, ports PortPolicy) {
	p.records = append(p.records, Record{Prefix: prefix.Masked(), Ports: ports})
}

// InsertAddr authorizes a single socket address.
func (p *Pool) InsertAddr(addr netip.AddrPort) {
	p.addrs = append(p.addrs, netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port()))
}

// InsertHost resolves hostport once and authorizes every resulting address
// on the given port. A nil resolver uses net.DefaultResolver.
func (p *Pool) InsertHost(ctx context.Context, hostport string, resolver Resolver) error {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return errors.Wrap(errors.PhaseNetwork, errors.KindInvalidInput, err, "split host and port")
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return errors.Wrap(errors.PhaseNetwork, errors.KindInvalidInput, err, "parse port "+strconv.Quote(portStr))
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		p.InsertAddr(netip.AddrPortFrom(addr, uint16(port)))
		return nil
	}

	if resolver == nil {
		resolver = net.DefaultResolver
	}
	addrs, err := resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return errors.New(errors.PhaseNetwork, errors.KindNotFound).
			Resource(host).
			Detail("resolve host").
			Cause(err).
			Build()
	}
	for _, addr := range addrs {
		p.InsertAddr(netip.AddrPortFrom(addr, uint16(port)))
	}
	return nil
}

// IsAuthorized reports whether addr falls within any inserted authorization.
// IPv4-mapped IPv6 addresses are also checked in their IPv4 form.
func (p *Pool) IsAuthorized(addr netip.AddrPort) bool {
	if !addr.IsValid() {
		return false
	}
	ip := addr.Addr()
	unmapped := ip.Unmap()

	for _, a := range p.addrs {
		if a.Port() == addr.Port() && (a.Addr() == ip || a.Addr() == unmapped) {
			return true
		}
	}
	for _, r := range p.records {
		if !r.Ports.Allows(addr.Port()) {
			continue
		}
		if r.Prefix.Contains(ip) || (unmapped != ip && r.Prefix.Contains(unmapped)) {
			return true
		}
	}
	return false
}

// Records returns a copy of the network authorizations.
func (p *Pool) Records() []Record {
	return append([]Record(nil), p.records...)
}

// Addrs returns a copy of the individually authorized socket addresses.
func (p *Pool) Addrs() []netip.AddrPort {
	return append([]netip.AddrPort(nil), p.addrs...)
}

// Len returns the total number of authorization entries.
func (p *Pool) Len() int {
	return len(p.records) + len(p.addrs)
}

// Clone returns an independent copy of the pool.
func (p *Pool) Clone() *Pool {
	return &Pool{
		records: p.Records(),
		addrs:   p.Addrs(),
	}
}

// Frozen returns a read-only view of a copy of the pool.
func (p *Pool) Frozen() Authorizer {
	return frozen{pool: p.Clone()}
}

type frozen struct {
	pool *Pool
}

func (f frozen) IsAuthorized(addr netip.AddrPort) bool {
	return f.pool.IsAuthorized(addr)
}
