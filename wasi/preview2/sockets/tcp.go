package sockets

import (
	"context"
	"errors"
	"io"
	"net"
	"net/netip"

	"github.com/wippyai/wasm-host/resource"
	"github.com/wippyai/wasm-host/wasi/preview2"
)

// TCPSocket is either a connected stream or a listening socket.
type TCPSocket struct {
	conn net.Conn
	ln   net.Listener
}

func (s *TCPSocket) ResourceKind() resource.Kind { return resource.KindTCPSocket }

func (s *TCPSocket) Close() error {
	if s.ln != nil {
		return s.ln.Close()
	}
	return s.conn.Close()
}

func (s *TCPSocket) LocalAddr() netip.AddrPort {
	if s.ln != nil {
		return addrPortOf(s.ln.Addr())
	}
	return addrPortOf(s.conn.LocalAddr())
}

func (s *TCPSocket) RemoteAddr() netip.AddrPort {
	if s.conn == nil {
		return netip.AddrPort{}
	}
	return addrPortOf(s.conn.RemoteAddr())
}

func addrPortOf(a net.Addr) netip.AddrPort {
	if tcp, ok := a.(*net.TCPAddr); ok {
		return tcp.AddrPort()
	}
	return netip.AddrPort{}
}

type TCPHost struct {
	view   preview2.View
	dialer net.Dialer
	lc     net.ListenConfig
}

func NewTCPHost(view preview2.View) *TCPHost {
	return &TCPHost{view: view}
}

func (h *TCPHost) Namespace() string {
	return "wasi:sockets/tcp@0.2.0"
}

func (h *TCPHost) socket(self resource.Handle) (*TCPSocket, error) {
	s, err := resource.GetAs[*TCPSocket](h.view.Table(), self, resource.KindTCPSocket)
	if err != nil {
		return nil, &NetworkError{Code: NetworkErrorInvalidArgument, Cause: err}
	}
	return s, nil
}

// Connect dials remote through the network handle. The address is checked
// against the pool before any socket is opened.
func (h *TCPHost) Connect(ctx context.Context, networkHandle resource.Handle, remote netip.AddrPort) (resource.Handle, error) {
	n, err := lookupNetwork(h.view, networkHandle)
	if err != nil {
		return 0, &NetworkError{Code: NetworkErrorInvalidArgument, Cause: err}
	}
	if err := n.Check(remote); err != nil {
		return 0, err
	}
	conn, err := h.dialer.DialContext(ctx, "tcp", remote.String())
	if err != nil {
		return 0, mapNetError(err)
	}
	return h.push(&TCPSocket{conn: conn})
}

// Listen binds local through the network handle and starts listening.
func (h *TCPHost) Listen(ctx context.Context, networkHandle resource.Handle, local netip.AddrPort) (resource.Handle, error) {
	n, err := lookupNetwork(h.view, networkHandle)
	if err != nil {
		return 0, &NetworkError{Code: NetworkErrorInvalidArgument, Cause: err}
	}
	if err := n.Check(local); err != nil {
		return 0, err
	}
	ln, err := h.lc.Listen(ctx, "tcp", local.String())
	if err != nil {
		return 0, mapNetError(err)
	}
	return h.push(&TCPSocket{ln: ln})
}

// Accept waits for one connection on a listening socket.
func (h *TCPHost) Accept(ctx context.Context, self resource.Handle) (resource.Handle, error) {
	s, err := h.socket(self)
	if err != nil {
		return 0, err
	}
	if s.ln == nil {
		return 0, &NetworkError{Code: NetworkErrorInvalidState}
	}

	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := s.ln.Accept()
		ch <- result{conn, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return 0, mapNetError(r.err)
		}
		return h.push(&TCPSocket{conn: r.conn})
	case <-ctx.Done():
		// Closing the listener unblocks Accept; the socket is unusable after
		// a cancelled accept.
		_ = s.ln.Close()
		if r := <-ch; r.conn != nil {
			_ = r.conn.Close()
		}
		return 0, &NetworkError{Code: NetworkErrorTimeout, Cause: ctx.Err()}
	}
}

func (h *TCPHost) Send(_ context.Context, self resource.Handle, p []byte) (uint64, error) {
	s, err := h.socket(self)
	if err != nil {
		return 0, err
	}
	if s.conn == nil {
		return 0, &NetworkError{Code: NetworkErrorInvalidState}
	}
	n, err := s.conn.Write(p)
	if err != nil {
		return uint64(n), mapNetError(err)
	}
	return uint64(n), nil
}

// Receive reads at most n bytes. End of stream is a closed preview2.StreamError.
func (h *TCPHost) Receive(_ context.Context, self resource.Handle, n uint64) ([]byte, error) {
	s, err := h.socket(self)
	if err != nil {
		return nil, err
	}
	if s.conn == nil {
		return nil, &NetworkError{Code: NetworkErrorInvalidState}
	}
	if n > preview2.MaxReadSize {
		n = preview2.MaxReadSize
	}
	buf := make([]byte, n)
	got, err := s.conn.Read(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			if got > 0 {
				return buf[:got], nil
			}
			return nil, &preview2.StreamError{Closed: true}
		}
		return nil, mapNetError(err)
	}
	return buf[:got], nil
}

func (h *TCPHost) LocalAddress(_ context.Context, self resource.Handle) (netip.AddrPort, error) {
	s, err := h.socket(self)
	if err != nil {
		return netip.AddrPort{}, err
	}
	return s.LocalAddr(), nil
}

func (h *TCPHost) RemoteAddress(_ context.Context, self resource.Handle) (netip.AddrPort, error) {
	s, err := h.socket(self)
	if err != nil {
		return netip.AddrPort{}, err
	}
	if s.conn == nil {
		return netip.AddrPort{}, &NetworkError{Code: NetworkErrorInvalidState}
	}
	return s.RemoteAddr(), nil
}

func (h *TCPHost) ResourceDropTCPSocket(_ context.Context, self resource.Handle) error {
	s, err := resource.RemoveAs[*TCPSocket](h.view.Table(), self, resource.KindTCPSocket)
	if err != nil {
		return err
	}
	return s.Close()
}

func (h *TCPHost) push(s *TCPSocket) (resource.Handle, error) {
	handle, err := h.view.Table().Push(s)
	if err != nil {
		_ = s.Close()
		return 0, &NetworkError{Code: NetworkErrorNewSocketLimit, Cause: err}
	}
	return handle, nil
}
