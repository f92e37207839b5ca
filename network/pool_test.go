package network

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	wherrors "github.com/wippyai/wasm-host/errors"
)

type staticResolver map[string][]netip.Addr

func (r staticResolver) LookupNetIP(_ context.Context, _, host string) ([]netip.Addr, error) {
	addrs, ok := r[host]
	if !ok {
		return nil, errors.New("no such host")
	}
	return addrs, nil
}

func u16(v uint16) *uint16 { return &v }

func TestPool_EmptyAuthorizesNothing(t *testing.T) {
	p := NewPool()
	require.False(t, p.IsAuthorized(netip.MustParseAddrPort("127.0.0.1:80")))
	require.False(t, p.IsAuthorized(netip.MustParseAddrPort("[::1]:80")))
	require.False(t, p.IsAuthorized(netip.AddrPort{}))
}

func TestPool_AnyPort(t *testing.T) {
	p := NewPool()
	p.InsertNetwork(netip.MustParsePrefix("10.0.0.0/8"), AnyPort())

	for _, port := range []uint16{0, 1, 80, 443, 8080, 65535} {
		require.True(t, p.IsAuthorized(netip.AddrPortFrom(netip.MustParseAddr("10.1.2.3"), port)), "port %d", port)
	}
	require.False(t, p.IsAuthorized(netip.MustParseAddrPort("11.0.0.1:80")))
}

func TestPool_PortRange(t *testing.T) {
	p := NewPool()
	p.InsertNetwork(netip.MustParsePrefix("192.168.0.0/16"), PortRange(8000, u16(8010)))
	addr := netip.MustParseAddr("192.168.4.4")

	tests := []struct {
		port uint16
		want bool
	}{
		{7999, false},
		{8000, true},
		{8005, true},
		{8009, true},
		{8010, false},
		{9000, false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, p.IsAuthorized(netip.AddrPortFrom(addr, tt.port)), "port %d", tt.port)
	}
}

func TestPool_OpenEndedRange(t *testing.T) {
	p := NewPool()
	p.InsertNetwork(netip.MustParsePrefix("::/0"), PortRange(1024, nil))

	require.False(t, p.IsAuthorized(netip.MustParseAddrPort("[2001:db8::1]:1023")))
	require.True(t, p.IsAuthorized(netip.MustParseAddrPort("[2001:db8::1]:1024")))
	require.True(t, p.IsAuthorized(netip.MustParseAddrPort("[2001:db8::1]:65535")))
}

func TestPool_SinglePort(t *testing.T) {
	p := NewPool()
	p.InsertNetwork(netip.MustParsePrefix("127.0.0.0/8"), SinglePort(5432))
	p.InsertNetwork(netip.MustParsePrefix("127.0.0.0/8"), SinglePort(65535))

	require.True(t, p.IsAuthorized(netip.MustParseAddrPort("127.0.0.1:5432")))
	require.False(t, p.IsAuthorized(netip.MustParseAddrPort("127.0.0.1:5433")))
	require.True(t, p.IsAuthorized(netip.MustParseAddrPort("127.0.0.1:65535")))
	require.False(t, p.IsAuthorized(netip.MustParseAddrPort("127.0.0.1:65534")))
}

func TestPool_InheritEverything(t *testing.T) {
	p := NewPool()
	p.InsertNetwork(netip.MustParsePrefix("0.0.0.0/0"), AnyPort())
	p.InsertNetwork(netip.MustParsePrefix("::/0"), AnyPort())

	require.True(t, p.IsAuthorized(netip.MustParseAddrPort("93.184.216.34:443")))
	require.True(t, p.IsAuthorized(netip.MustParseAddrPort("[2606:2800:220:1::]:80")))
}

func TestPool_MappedAddresses(t *testing.T) {
	p := NewPool()
	p.InsertNetwork(netip.MustParsePrefix("203.0.113.0/24"), AnyPort())
	p.InsertAddr(netip.MustParseAddrPort("198.51.100.7:53"))

	require.True(t, p.IsAuthorized(netip.MustParseAddrPort("[::ffff:203.0.113.9]:80")))
	require.True(t, p.IsAuthorized(netip.MustParseAddrPort("[::ffff:198.51.100.7]:53")))
	require.False(t, p.IsAuthorized(netip.MustParseAddrPort("[::ffff:198.51.100.7]:54")))
}

func TestPool_InsertAddr(t *testing.T) {
	p := NewPool()
	p.InsertAddr(netip.MustParseAddrPort("1.2.3.4:80"))

	require.True(t, p.IsAuthorized(netip.MustParseAddrPort("1.2.3.4:80")))
	require.False(t, p.IsAuthorized(netip.MustParseAddrPort("1.2.3.4:81")))
	require.False(t, p.IsAuthorized(netip.MustParseAddrPort("1.2.3.5:80")))
}

func TestPool_InsertHost(t *testing.T) {
	ctx := context.Background()
	resolver := staticResolver{
		"db.internal": {netip.MustParseAddr("10.9.8.7"), netip.MustParseAddr("fd00::7")},
	}

	p := NewPool()
	require.NoError(t, p.InsertHost(ctx, "db.internal:5432", resolver))
	require.NoError(t, p.InsertHost(ctx, "[::1]:9000", resolver))

	require.True(t, p.IsAuthorized(netip.MustParseAddrPort("10.9.8.7:5432")))
	require.True(t, p.IsAuthorized(netip.MustParseAddrPort("[fd00::7]:5432")))
	require.True(t, p.IsAuthorized(netip.MustParseAddrPort("[::1]:9000")))
	require.Equal(t, 3, p.Len())

	err := p.InsertHost(ctx, "missing.internal:1", resolver)
	require.ErrorIs(t, err, wherrors.ErrNotFound)

	err = p.InsertHost(ctx, "no-port", resolver)
	require.Error(t, err)
	err = p.InsertHost(ctx, "host:99999", resolver)
	require.Error(t, err)
}

func TestPool_AuthorizationIsAdditive(t *testing.T) {
	p := NewPool()
	p.InsertNetwork(netip.MustParsePrefix("10.0.0.0/24"), SinglePort(80))
	target := netip.MustParseAddrPort("10.0.0.5:80")
	require.True(t, p.IsAuthorized(target))

	p.InsertNetwork(netip.MustParsePrefix("10.0.0.0/24"), SinglePort(443))
	p.InsertAddr(netip.MustParseAddrPort("10.0.0.5:22"))
	require.True(t, p.IsAuthorized(target))
}

func TestPool_FrozenIsIndependent(t *testing.T) {
	p := NewPool()
	p.InsertNetwork(netip.MustParsePrefix("10.0.0.0/8"), AnyPort())
	view := p.Frozen()

	p.InsertNetwork(netip.MustParsePrefix("172.16.0.0/12"), AnyPort())

	require.True(t, view.IsAuthorized(netip.MustParseAddrPort("10.0.0.1:1")))
	require.False(t, view.IsAuthorized(netip.MustParseAddrPort("172.16.0.1:1")))
	require.True(t, p.IsAuthorized(netip.MustParseAddrPort("172.16.0.1:1")))
}

func TestPortPolicy_String(t *testing.T) {
	require.Equal(t, "any", AnyPort().String())
	require.Equal(t, "80", SinglePort(80).String())
	require.Equal(t, "65535", SinglePort(65535).String())
	require.Equal(t, "65535..", PortRange(65535, nil).String())
	require.Equal(t, "8000..8010", PortRange(8000, u16(8010)).String())
	require.Equal(t, "1024..", PortRange(1024, nil).String())
	require.Equal(t, "10.0.0.0/8:any", Record{Prefix: netip.MustParsePrefix("10.0.0.0/8"), Ports: AnyPort()}.String())
}
