package attendify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ErrorKind classifies remote call failures. Every error returned by this
// package carries exactly one kind; callers never see raw transport errors.
type ErrorKind int

const (
	KindTimeout ErrorKind = iota
	KindUnreachable
	KindInvalidResponse
	KindUnauthorized
	KindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnreachable:
		return "unreachable"
	case KindInvalidResponse:
		return "invalid_response"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// RemoteError is the only error type returned by Client operations.
type RemoteError struct {
	Kind ErrorKind
	err  error
}

func (e *RemoteError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("remote call failed: %s", e.Kind)
	}
	return fmt.Sprintf("remote call failed (%s): %v", e.Kind, e.err)
}

func (e *RemoteError) Unwrap() error {
	return e.err
}

// KindOf extracts the ErrorKind from an error returned by this package.
// Returns KindUnknown if the error did not originate here.
func KindOf(err error) ErrorKind {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}

func remoteErr(kind ErrorKind, err error) *RemoteError {
	return &RemoteError{Kind: kind, err: err}
}

// classify maps a transport-level error to its ErrorKind. The mapping is
// fixed: timeouts (including the client deadline) are KindTimeout,
// connection and DNS failures are KindUnreachable, everything else is
// KindUnknown.
func classify(err error) *RemoteError {
	if errors.Is(err, context.DeadlineExceeded) {
		return remoteErr(KindTimeout, err)
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return remoteErr(KindTimeout, err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return remoteErr(KindUnreachable, err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return remoteErr(KindUnreachable, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return remoteErr(KindUnreachable, err)
	}

	return remoteErr(KindUnknown, err)
}
