package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
)

// HostConfig holds per-host overrides. Zero fields inherit.
type HostConfig struct {
	// Timeout overrides the connect timeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// ReadTimeout overrides the idle read timeout.
	ReadTimeout time.Duration `yaml:"readTimeout,omitempty"`

	// Proxy is the SOCKS5 proxy used to reach the host.
	// "direct" forces a direct connection even when a global proxy is set.
	Proxy string `yaml:"proxy,omitempty"`
}

// ProxyDirect is the Proxy value that disables a global proxy for one host.
const ProxyDirect = "direct"

// merge returns h with every non-zero field of override applied.
func (h HostConfig) merge(override HostConfig) HostConfig {
	if override.Timeout > 0 {
		h.Timeout = override.Timeout
	}
	if override.ReadTimeout > 0 {
		h.ReadTimeout = override.ReadTimeout
	}
	switch override.Proxy {
	case "":
	case ProxyDirect:
		h.Proxy = ""
	default:
		h.Proxy = override.Proxy
	}
	return h
}

// File represents the structure of the .burrow configuration file.
type File struct {
	// Home is the URL the browse command opens without an argument.
	Home string `yaml:"home,omitempty"`

	// Defaults applies to every host unless a flag overrides it.
	Defaults HostConfig `yaml:"defaults,omitempty"`

	// Hosts maps host names to their overrides. Keys compare case-insensitively.
	Hosts map[string]HostConfig `yaml:"hosts,omitempty"`

	// Bookmarks maps short names to gopher URLs.
	Bookmarks map[string]string `yaml:"bookmarks,omitempty"`
}

// HostConfig returns the configuration for host: its entry merged over the defaults.
func (f *File) HostConfig(host string) HostConfig {
	result := f.Defaults
	if entry, ok := f.lookupHost(host); ok {
		result = result.merge(entry)
	}
	return result
}

func (f *File) lookupHost(host string) (HostConfig, bool) {
	if entry, ok := f.Hosts[host]; ok {
		return entry, true
	}
	for name, entry := range f.Hosts {
		if strings.EqualFold(name, host) {
			return entry, true
		}
	}
	return HostConfig{}, false
}

// ForcesDirect reports whether the entry for host sets proxy to "direct".
// It is safe to call on a nil File.
func (f *File) ForcesDirect(host string) bool {
	if f == nil {
		return false
	}
	entry, ok := f.lookupHost(host)
	return ok && entry.Proxy == ProxyDirect
}

// Bookmark returns the URL stored under name. For an unknown name the error
// wraps ErrUnknownBookmark and suggests the closest bookmark, if any is close.
func (f *File) Bookmark(name string) (string, error) {
	if f != nil {
		if url, ok := f.Bookmarks[name]; ok {
			return url, nil
		}
	}
	if suggestion := f.suggestBookmark(name); suggestion != "" {
		return "", fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownBookmark, name, suggestion)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBookmark, name)
}

// suggestBookmark returns the bookmark nearest to name by edit distance, or
// "" when nothing is within a third of the name's length (minimum 2 edits).
func (f *File) suggestBookmark(name string) string {
	if f == nil || len(f.Bookmarks) == 0 {
		return ""
	}

	names := make([]string, 0, len(f.Bookmarks))
	for n := range f.Bookmarks {
		names = append(names, n)
	}
	sort.Strings(names)

	limit := max(2, len(name)/3)
	best, bestDistance := "", limit+1
	for _, candidate := range names {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(candidate))
		if d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	return best
}

// ResolveTarget expands "@name" into the bookmarked URL. Anything else is
// returned unchanged.
func (f *File) ResolveTarget(target string) (string, error) {
	name, ok := strings.CutPrefix(target, "@")
	if !ok {
		return target, nil
	}
	return f.Bookmark(name)
}

// HomeURL returns the configured home URL.
func (f *File) HomeURL() (string, error) {
	if f == nil || f.Home == "" {
		return "", ErrNoHome
	}
	return f.ResolveTarget(f.Home)
}
