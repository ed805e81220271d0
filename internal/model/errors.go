package model

import "errors"

// Address errors.
// All of them are reported as InvalidURL by callers that classify failures.
var (
	// ErrInvalidURL is the parent of every address parse error.
	ErrInvalidURL = errors.New("invalid gopher URL")

	// ErrEmptyHost is returned when the host segment is empty.
	ErrEmptyHost = errors.New("invalid gopher URL: empty host")

	// ErrInvalidPort is returned when the port is not a number in 1..65535.
	ErrInvalidPort = errors.New("invalid gopher URL: port must be a number between 1 and 65535")

	// ErrUnsupportedScheme is returned for URLs with a scheme other than gopher.
	ErrUnsupportedScheme = errors.New("invalid gopher URL: unsupported scheme")
)

// addressError ties a specific parse failure to ErrInvalidURL so that
// errors.Is works against both.
type addressError struct {
	raw string
	err error
}

func (e *addressError) Error() string {
	return e.err.Error() + ": " + e.raw
}

func (e *addressError) Unwrap() []error {
	return []error{e.err, ErrInvalidURL}
}

// Menu decoding errors. DecodePage absorbs them; ParseMenu returns them.
var (
	// ErrInvalidEncoding is returned when a menu body is not valid UTF-8.
	ErrInvalidEncoding = errors.New("menu is not valid UTF-8")

	// ErrMalformedMenu is returned when a line does not look like a gophermap entry.
	ErrMalformedMenu = errors.New("malformed gophermap line")
)
