package config

import "errors"

// Validation errors returned by Config.Validate.
var (
	// ErrNoTarget is returned when no URL or bookmark is given.
	ErrNoTarget = errors.New("at least one gopher URL or @bookmark is required")

	// ErrInvalidTimeout is returned when the connect timeout is not positive.
	ErrInvalidTimeout = errors.New("timeout must be positive")

	// ErrInvalidReadTimeout is returned when the idle read timeout is not positive.
	ErrInvalidReadTimeout = errors.New("read timeout must be positive")

	// ErrInvalidChunkSize is returned when the read chunk size is not positive.
	ErrInvalidChunkSize = errors.New("chunk size must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("batch size must be positive")

	// ErrConflictingReportFormats is returned when both JSON and Markdown output are requested.
	ErrConflictingReportFormats = errors.New("--json and --markdown cannot be used together")

	// ErrInvalidMaxResponseSize is returned when the response limit is negative.
	ErrInvalidMaxResponseSize = errors.New("max response size must not be negative")

	// ErrConflictingProxy is returned when an external proxy and the embedded Tor daemon are both requested.
	ErrConflictingProxy = errors.New("--proxy and --tor cannot be used together")
)

// Config file errors.
var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrUnknownBookmark is returned when an @name does not match any bookmark.
	ErrUnknownBookmark = errors.New("unknown bookmark")

	// ErrNoHome is returned when no home URL is configured.
	ErrNoHome = errors.New("no home URL configured")
)
