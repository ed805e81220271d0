package gopher

import (
	"context"
	"errors"
	"net"
	"os"
	"syscall"

	"github.com/nao1215/burrow/internal/model"
)

// ErrorKind classifies why a fetch failed.
type ErrorKind int

const (
	// KindInvalidURL means the address could not be used at all.
	KindInvalidURL ErrorKind = iota
	// KindHostUnknown means the host name did not resolve.
	KindHostUnknown
	// KindConnectFailed means the server refused the connection.
	KindConnectFailed
	// KindConnectionTimeout means the connect or an idle read exceeded its deadline.
	KindConnectionTimeout
	// KindParserFailed is part of the taxonomy but never surfaced: decoding
	// failures degrade the page to plain text.
	KindParserFailed
	// KindUserCancelled means the fetch was cancelled by its owner.
	KindUserCancelled
	// KindUnknownException covers every other failure. The cause is kept in FetchError.Err.
	KindUnknownException
)

// Sentinel errors, one per kind, for use with errors.Is.
var (
	// ErrHostUnknown is matched by fetch errors of kind KindHostUnknown.
	ErrHostUnknown = errors.New("host unknown")

	// ErrConnectFailed is matched by fetch errors of kind KindConnectFailed.
	ErrConnectFailed = errors.New("connection refused")

	// ErrConnectionTimeout is matched by fetch errors of kind KindConnectionTimeout.
	ErrConnectionTimeout = errors.New("connection timed out")

	// ErrParserFailed is matched by fetch errors of kind KindParserFailed.
	ErrParserFailed = errors.New("response could not be parsed")

	// ErrUserCancelled is matched by fetch errors of kind KindUserCancelled.
	ErrUserCancelled = errors.New("fetch cancelled")

	// ErrUnknownException is matched by fetch errors of kind KindUnknownException.
	ErrUnknownException = errors.New("fetch failed")

	// ErrResponseTooLarge is returned when a buffered response exceeds the configured limit.
	ErrResponseTooLarge = errors.New("response exceeds maximum size")
)

// String returns the kind name used in logs and the fetch log.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidURL:
		return "InvalidURL"
	case KindHostUnknown:
		return "HostUnknown"
	case KindConnectFailed:
		return "ConnectFailed"
	case KindConnectionTimeout:
		return "ConnectionTimeout"
	case KindParserFailed:
		return "ParserFailed"
	case KindUserCancelled:
		return "UserCancelled"
	case KindUnknownException:
		return "UnknownException"
	default:
		return "unknown"
	}
}

// sentinel returns the error that errors.Is matches for this kind.
func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidURL:
		return model.ErrInvalidURL
	case KindHostUnknown:
		return ErrHostUnknown
	case KindConnectFailed:
		return ErrConnectFailed
	case KindConnectionTimeout:
		return ErrConnectionTimeout
	case KindParserFailed:
		return ErrParserFailed
	case KindUserCancelled:
		return ErrUserCancelled
	default:
		return ErrUnknownException
	}
}

// FetchError is the error delivered for a failed fetch.
type FetchError struct {
	// Kind is the failure class.
	Kind ErrorKind

	// Address is the address that was being fetched.
	Address model.Address

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	msg := "fetch " + e.Address.URL() + ": " + e.Kind.sentinel().Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of the kind.
func (e *FetchError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf returns the kind of a fetch error.
// Errors that are not fetch errors are reported as KindUnknownException.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknownException
}

// classify maps a transport error to a kind. The first matching rule wins and
// cancellation is checked before anything else: closing the socket from the
// cancelling side surfaces as an ordinary read error.
func classify(err error, cancelled bool) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}

	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case cancelled, errors.Is(err, ErrUserCancelled), errors.Is(err, context.Canceled):
		return KindUserCancelled
	case errors.Is(err, syscall.ECONNREFUSED):
		return KindConnectFailed
	case errors.As(err, &dnsErr):
		return KindHostUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return KindConnectionTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return KindConnectionTimeout
	default:
		return KindUnknownException
	}
}
