package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTimeout bounds connection establishment. Gopher servers are
	// small and often slow; onion hosts through Tor are slower still.
	DefaultTimeout = 30 * time.Second

	// DefaultReadTimeout is the longest a fetch may sit without receiving a byte.
	DefaultReadTimeout = 30 * time.Second

	// DefaultChunkSize is the size of each socket read.
	DefaultChunkSize = 8 * 1024

	// DefaultMaxResponseSize caps a buffered response. Streamed downloads are not capped.
	DefaultMaxResponseSize = 64 * 1024 * 1024

	// DefaultBatchSize is the number of concurrent fetches for multi-URL runs.
	DefaultBatchSize = 4

	// DefaultTorProxyAddress is the Tor daemon's usual SOCKS port.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTorStartupTimeout is how long to wait for the embedded Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultHistoryLimit is the number of fetch log rows shown by default.
	DefaultHistoryLimit = 20

	// AppName is the application name used for XDG directory paths.
	AppName = "burrow"
)

// Config holds the options for one burrow invocation.
// It is filled from CLI flags and passed down explicitly; there is no global state.
type Config struct {
	// Targets are the gopher URLs or @bookmark names to fetch.
	Targets []string

	// Timeout is the connect timeout for each fetch.
	Timeout time.Duration

	// ReadTimeout is the idle read timeout for each fetch.
	ReadTimeout time.Duration

	// ChunkSize is the size of each socket read.
	ChunkSize int

	// MaxResponseSize caps buffered responses. Zero disables the cap.
	MaxResponseSize int64

	// BatchSize is the number of concurrent fetches when several targets are given.
	BatchSize int

	// Verbose enables debug logging.
	Verbose bool

	// ProxyAddress is an external SOCKS5 proxy, "[user:pass@]host:port".
	// Empty means direct connections.
	ProxyAddress string

	// UseEmbeddedTor starts a private Tor daemon and routes every fetch through it.
	UseEmbeddedTor bool

	// TorStartupTimeout bounds the embedded daemon's bootstrap.
	TorStartupTimeout time.Duration

	// ConfigFilePath is an explicit configuration file. When empty the file is searched for.
	ConfigFilePath string

	// File is the loaded configuration file, nil when none was found.
	File *File

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// OutputFile is where the report, or a streamed binary body, is written.
	// Empty means stdout.
	OutputFile string

	// DBDir is the directory holding the fetch log database.
	DBDir string

	// SaveToDB records each fetch in the fetch log.
	SaveToDB bool
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:           DefaultTimeout,
		ReadTimeout:       DefaultReadTimeout,
		ChunkSize:         DefaultChunkSize,
		MaxResponseSize:   DefaultMaxResponseSize,
		BatchSize:         DefaultBatchSize,
		TorStartupTimeout: DefaultTorStartupTimeout,
		DBDir:             XDGDataDir(),
		SaveToDB:          true,
	}
}

// XDGDataDir returns the XDG data directory for burrow.
// On Linux: ~/.local/share/burrow
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for burrow.
// On Linux: ~/.config/burrow
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for burrow.
// On Linux: ~/.cache/burrow
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks a configuration for the fetch command, which needs at least one target.
// It returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	return c.ValidateTransport()
}

// ValidateTransport checks everything except Targets. Commands that may run
// without a URL (browse falls back to the home page) call it directly.
func (c *Config) ValidateTransport() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.ReadTimeout <= 0 {
		return ErrInvalidReadTimeout
	}
	if c.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.MaxResponseSize < 0 {
		return ErrInvalidMaxResponseSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.ProxyAddress != "" && c.UseEmbeddedTor {
		return ErrConflictingProxy
	}
	return nil
}

// Proxied reports whether fetches go through a SOCKS5 proxy by default.
func (c *Config) Proxied() bool {
	return c.ProxyAddress != "" || c.UseEmbeddedTor
}

// ApplyFile attaches f and copies its defaults into every field whose flag
// was not set explicitly. changed reports whether a flag was given on the
// command line.
func (c *Config) ApplyFile(f *File, changed func(flag string) bool) {
	c.File = f
	if f == nil {
		return
	}
	if f.Defaults.Timeout > 0 && !changed("timeout") {
		c.Timeout = f.Defaults.Timeout
	}
	if f.Defaults.ReadTimeout > 0 && !changed("read-timeout") {
		c.ReadTimeout = f.Defaults.ReadTimeout
	}
	if f.Defaults.Proxy != "" && !changed("proxy") && !c.UseEmbeddedTor {
		c.ProxyAddress = f.Defaults.Proxy
	}
}

// HostSettings returns the effective settings for host: the file's entry
// for that host layered over the process-wide values.
func (c *Config) HostSettings(host string) HostConfig {
	settings := HostConfig{
		Timeout:     c.Timeout,
		ReadTimeout: c.ReadTimeout,
		Proxy:       c.ProxyAddress,
	}
	if c.File == nil {
		return settings
	}
	if entry, ok := c.File.lookupHost(host); ok {
		settings = settings.merge(entry)
	}
	return settings
}
