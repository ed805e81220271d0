package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// sensitiveKeys contains attribute keys whose values are always masked.
// Keys are compared in lower case.
var sensitiveKeys = map[string]bool{
	// Search terms sent to type 7 servers.
	"query":  true,
	"search": true,
	"terms":  true,

	// Proxy credentials.
	"proxy_auth":     true,
	"proxy_user":     true,
	"proxy_password": true,

	// Authentication
	"password": true,
	"passwd":   true,
	"secret":   true,
	"token":    true,
	"auth":     true,

	// Tor keys
	"private_key": true,
	"privatekey":  true,
}

// selectorKeys carry a Gopher selector. The selector itself is logged; any
// search terms after a TAB are masked.
var selectorKeys = map[string]bool{
	"selector": true,
	"request":  true,
}

// proxyKeys carry a proxy address that may embed "user:pass@".
var proxyKeys = map[string]bool{
	"proxy":         true,
	"proxy_address": true,
	"socks":         true,
}

// sensitivePatterns contains patterns that indicate a secret regardless of key name.
var sensitivePatterns = []*regexp.Regexp{
	// Private key markers
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),

	// ed25519v1 secret (Tor v3 onion)
	regexp.MustCompile(`== ed25519v1-secret:`),

	// Tor control port password hash
	regexp.MustCompile(`^16:[0-9A-F]{58}$`),
}

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// SecureHandler wraps an slog.Handler and masks sensitive attributes before
// they reach it: search queries, proxy credentials and key material.
//
// Masking works on three levels:
//  1. Keys in sensitiveKeys, or containing a sensitive keyword, lose their value
//  2. Selector and proxy keys keep their value with the secret part masked
//  3. Any string value matching sensitivePatterns is masked whatever its key
//
// Design decision: Masking lives in a handler wrapper rather than at the call
// sites because:
//  1. A forgotten mask at one call site cannot leak a search query
//  2. It works with the text and JSON handlers alike
//  3. The router, batch runner and browser session share one masking policy
type SecureHandler struct {
	// handler receives the sanitized records.
	handler slog.Handler
}

// NewSecureHandler creates a new SecureHandler wrapping the given handler.
// If handler is nil, the returned SecureHandler will use slog.Default().Handler().
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the record's attributes and passes it to the underlying handler.
// The message itself is not inspected; callers put variable data in attributes.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are sanitized before being added.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitizedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitizedAttrs[i] = sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitizedAttrs)}
}

// WithGroup returns a new handler with the given group name.
// Attributes added later inside the group are still sanitized by Handle.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

// sanitizeAttr sanitizes a single attribute, recursively handling groups.
func sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitizedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			sanitizedAttrs[i] = sanitizeAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitizedAttrs...)}
	}

	key := strings.ToLower(a.Key)
	if sensitiveKeys[key] || containsSensitiveKeyword(key) {
		if a.Value.Kind() == slog.KindString && a.Value.String() == "" {
			return a
		}
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() != slog.KindString {
		return a
	}
	value := a.Value.String()

	switch {
	case selectorKeys[key]:
		return slog.String(a.Key, MaskSelector(value))
	case proxyKeys[key]:
		return slog.String(a.Key, MaskProxyAddress(value))
	case isSensitiveValue(value):
		return slog.String(a.Key, MaskValue)
	}
	return a
}

// MaskSelector masks the search terms of a "selector\tquery" request line.
// A selector without a TAB is returned unchanged.
//
// The selector stays readable so a debug log still shows which search server
// was asked, for example "/v2/vs\t***REDACTED***".
func MaskSelector(selector string) string {
	head, _, found := strings.Cut(selector, "\t")
	if !found {
		return selector
	}
	return head + "\t" + MaskValue
}

// MaskProxyAddress masks the credentials of a "user:pass@host:port" proxy address.
// "alice:s3cret@127.0.0.1:1080" becomes "***REDACTED***@127.0.0.1:1080".
// An address without credentials is returned unchanged.
func MaskProxyAddress(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return address
	}
	return MaskValue + address[at:]
}

// containsSensitiveKeyword checks if the key contains sensitive keywords.
// The bare word "key" is excluded; it matches too many harmless keys.
func containsSensitiveKeyword(key string) bool {
	sensitiveKeywords := []string{
		"password", "passwd", "secret", "token", "credential", "private",
	}

	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// isSensitiveValue checks if a value matches sensitive patterns.
func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// NewSecureLogger creates a text slog.Logger with secure handling.
// verbose selects the Debug level; otherwise only warnings and errors are logged.
// The logger is shared by every burrow component.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewSecureJSONLogger creates a JSON slog.Logger with secure handling.
// It is selected with --log-format json and uses the same levels as
// NewSecureLogger.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
