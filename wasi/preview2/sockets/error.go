package sockets

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

type NetworkErrorCode uint8

const (
	NetworkErrorUnknown NetworkErrorCode = iota
	NetworkErrorAccessDenied
	NetworkErrorNotSupported
	NetworkErrorInvalidArgument
	NetworkErrorOutOfMemory
	NetworkErrorTimeout
	NetworkErrorConcurrencyConflict
	NetworkErrorNotInProgress
	NetworkErrorWouldBlock
	NetworkErrorInvalidState
	NetworkErrorNewSocketLimit
	NetworkErrorAddressNotBindable
	NetworkErrorAddressInUse
	NetworkErrorRemoteUnreachable
	NetworkErrorConnectionRefused
	NetworkErrorConnectionReset
	NetworkErrorConnectionAborted
	NetworkErrorDatagramTooLarge
	NetworkErrorNameUnresolvable
	NetworkErrorTemporaryResolverFailure
	NetworkErrorPermanentResolverFailure
)

var codeNames = [...]string{
	NetworkErrorUnknown:                  "unknown",
	NetworkErrorAccessDenied:             "access-denied",
	NetworkErrorNotSupported:             "not-supported",
	NetworkErrorInvalidArgument:          "invalid-argument",
	NetworkErrorOutOfMemory:              "out-of-memory",
	NetworkErrorTimeout:                  "timeout",
	NetworkErrorConcurrencyConflict:      "concurrency-conflict",
	NetworkErrorNotInProgress:            "not-in-progress",
	NetworkErrorWouldBlock:               "would-block",
	NetworkErrorInvalidState:             "invalid-state",
	NetworkErrorNewSocketLimit:           "new-socket-limit",
	NetworkErrorAddressNotBindable:       "address-not-bindable",
	NetworkErrorAddressInUse:             "address-in-use",
	NetworkErrorRemoteUnreachable:        "remote-unreachable",
	NetworkErrorConnectionRefused:        "connection-refused",
	NetworkErrorConnectionReset:          "connection-reset",
	NetworkErrorConnectionAborted:        "connection-aborted",
	NetworkErrorDatagramTooLarge:         "datagram-too-large",
	NetworkErrorNameUnresolvable:         "name-unresolvable",
	NetworkErrorTemporaryResolverFailure: "temporary-resolver-failure",
	NetworkErrorPermanentResolverFailure: "permanent-resolver-failure",
}

func (c NetworkErrorCode) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("error-code(%d)", uint8(c))
}

// NetworkError is the error-code result of a socket operation.
type NetworkError struct {
	Cause error
	Code  NetworkErrorCode
}

func (e *NetworkError) Error() string {
	if e.Cause != nil {
		return e.Code.String() + ": " + e.Cause.Error()
	}
	return e.Code.String()
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// mapNetError converts Go net package errors to WASI network error codes.
func mapNetError(err error) *NetworkError {
	if err == nil {
		return nil
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return &NetworkError{Code: mapErrno(errno), Cause: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsTemporary:
			return &NetworkError{Code: NetworkErrorTemporaryResolverFailure, Cause: err}
		case dnsErr.IsNotFound:
			return &NetworkError{Code: NetworkErrorNameUnresolvable, Cause: err}
		}
		return &NetworkError{Code: NetworkErrorPermanentResolverFailure, Cause: err}
	}

	var addrErr *net.AddrError
	if errors.As(err, &addrErr) {
		return &NetworkError{Code: NetworkErrorInvalidArgument, Cause: err}
	}
	if os.IsTimeout(err) {
		return &NetworkError{Code: NetworkErrorTimeout, Cause: err}
	}
	if os.IsPermission(err) {
		return &NetworkError{Code: NetworkErrorAccessDenied, Cause: err}
	}
	return &NetworkError{Code: NetworkErrorUnknown, Cause: err}
}

func mapErrno(errno syscall.Errno) NetworkErrorCode {
	switch errno {
	case syscall.EACCES, syscall.EPERM:
		return NetworkErrorAccessDenied
	case syscall.ECONNREFUSED:
		return NetworkErrorConnectionRefused
	case syscall.ECONNRESET:
		return NetworkErrorConnectionReset
	case syscall.ECONNABORTED:
		return NetworkErrorConnectionAborted
	case syscall.EADDRINUSE:
		return NetworkErrorAddressInUse
	case syscall.EADDRNOTAVAIL:
		return NetworkErrorAddressNotBindable
	case syscall.ENETUNREACH, syscall.EHOSTUNREACH:
		return NetworkErrorRemoteUnreachable
	case syscall.ETIMEDOUT:
		return NetworkErrorTimeout
	case syscall.EINVAL:
		return NetworkErrorInvalidArgument
	}
	return NetworkErrorUnknown
}
