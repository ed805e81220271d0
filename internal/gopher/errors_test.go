package gopher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/nao1215/burrow/internal/model"
)

// TestErrorKindString tests the String method of ErrorKind.
func TestErrorKindString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		kind     ErrorKind
		expected string
	}{
		{KindInvalidURL, "InvalidURL"},
		{KindHostUnknown, "HostUnknown"},
		{KindConnectFailed, "ConnectFailed"},
		{KindConnectionTimeout, "ConnectionTimeout"},
		{KindParserFailed, "ParserFailed"},
		{KindUserCancelled, "UserCancelled"},
		{KindUnknownException, "UnknownException"},
		{ErrorKind(99), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if tc.kind.String() != tc.expected {
				t.Errorf("got %q, expected %q", tc.kind.String(), tc.expected)
			}
		})
	}
}

// TestClassify tests the failure classification rules.
func TestClassify(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		err       error
		cancelled bool
		expected  ErrorKind
	}{
		{"cancel wins over a read error", errors.New("use of closed network connection"), true, KindUserCancelled},
		{"cancel wins over refused", syscall.ECONNREFUSED, true, KindUserCancelled},
		{"context canceled", fmt.Errorf("dial: %w", context.Canceled), false, KindUserCancelled},
		{"refused", &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, false, KindConnectFailed},
		{"dns", &net.DNSError{Err: "no such host", Name: "x"}, false, KindHostUnknown},
		{"deadline", fmt.Errorf("read: %w", os.ErrDeadlineExceeded), false, KindConnectionTimeout},
		{"context deadline", context.DeadlineExceeded, false, KindConnectionTimeout},
		{"other", errors.New("boom"), false, KindUnknownException},
		{"fetch error keeps its kind", &FetchError{Kind: KindInvalidURL}, false, KindInvalidURL},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := classify(tc.err, tc.cancelled); got != tc.expected {
				t.Errorf("got %v, expected %v", got, tc.expected)
			}
		})
	}
}

// TestFetchError tests matching and unwrapping.
func TestFetchError(t *testing.T) {
	t.Parallel()

	cause := errors.New("socket closed")
	err := error(&FetchError{
		Kind:    KindConnectFailed,
		Address: model.MustParseAddress("gopher://example.org/1/x"),
		Err:     cause,
	})

	if !errors.Is(err, ErrConnectFailed) {
		t.Error("expected ErrConnectFailed to match")
	}
	if errors.Is(err, ErrConnectionTimeout) {
		t.Error("unexpected ErrConnectionTimeout match")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to match")
	}
	expected := "fetch gopher://example.org/1/x: connection refused: socket closed"
	if err.Error() != expected {
		t.Errorf("got %q, expected %q", err.Error(), expected)
	}
	if KindOf(fmt.Errorf("wrapped: %w", err)) != KindConnectFailed {
		t.Error("expected KindOf to see through wrapping")
	}
	if KindOf(errors.New("plain")) != KindUnknownException {
		t.Error("expected plain errors to be UnknownException")
	}
}
