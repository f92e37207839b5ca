// Package sockets implements the WASI socket interfaces that depend on the
// network capability pool of a built host context.
//
// Implements:
//   - wasi:sockets/instance-network@0.2.0 - Network handle for the instance
//   - wasi:sockets/tcp@0.2.0 - TCP connect, send, receive (subset)
//
// Every bind and connect is checked against the context's authorizer before
// any socket is created. An unauthorized address fails with
// NetworkErrorAccessDenied.
package sockets
