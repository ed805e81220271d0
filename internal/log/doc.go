// Package log builds burrow's slog loggers and masks sensitive values in
// their output.
//
// SecureHandler wraps any slog.Handler. It masks:
//   - search terms, under keys such as "query" and after the TAB of a logged selector
//   - proxy credentials, under "proxy_auth" and in "user:pass@" proxy addresses
//   - passwords, tokens and Tor key material
//
// Masking applies in verbose mode too, so a shared debug log never leaks what
// a user searched for.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("fetch started", "selector", "/search\tmy terms")
//	// selector="/search\t***REDACTED***"
package log
