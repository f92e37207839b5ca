package sockets

import (
	"context"
	"net/netip"

	"github.com/wippyai/wasm-host/network"
	"github.com/wippyai/wasm-host/resource"
	"github.com/wippyai/wasm-host/wasi/preview2"
)

// Network is the resource behind an instance-network handle. It carries the
// authorizations of the context it was created from.
type Network struct {
	auth network.Authorizer
}

func (n *Network) ResourceKind() resource.Kind { return resource.KindNetwork }

// Check returns an access-denied NetworkError when addr is not authorized.
func (n *Network) Check(addr netip.AddrPort) error {
	if !addr.IsValid() {
		return &NetworkError{Code: NetworkErrorInvalidArgument}
	}
	if !n.auth.IsAuthorized(addr) {
		return &NetworkError{Code: NetworkErrorAccessDenied}
	}
	return nil
}

type InstanceNetworkHost struct {
	view preview2.View
}

func NewInstanceNetworkHost(view preview2.View) *InstanceNetworkHost {
	return &InstanceNetworkHost{view: view}
}

func (h *InstanceNetworkHost) Namespace() string {
	return "wasi:sockets/instance-network@0.2.0"
}

func (h *InstanceNetworkHost) InstanceNetwork(_ context.Context) (resource.Handle, error) {
	return h.view.Table().Push(&Network{auth: h.view.Context().Network()})
}

func lookupNetwork(view preview2.View, h resource.Handle) (*Network, error) {
	return resource.GetAs[*Network](view.Table(), h, resource.KindNetwork)
}
