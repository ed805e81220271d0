package tor

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/tornago"
)

// DefaultStartupTimeout is how long Start waits for the daemon to bootstrap.
// Override it with WithStartupTimeout or the --tor-timeout flag.
const DefaultStartupTimeout = 3 * time.Minute

// EmbeddedTor runs a private Tor daemon through tornago, for users who want
// to reach onion Gopher holes without installing Tor themselves.
//
// Design decision: The daemon is launched through tornago rather than by
// exec'ing tor directly because:
//  1. tornago generates the daemon configuration and data directory
//  2. It waits for bootstrap to finish, so Start returns a usable SOCKS port
//  3. The same library publishes the hidden services used in integration tests
//
// Note: Bootstrapping takes one to three minutes. Before the SOCKS port is
// usable the daemon has to:
//   - Fetch the consensus and relay descriptors
//   - Build its first circuits
//   - Open the SOCKS and control listeners
//
// An EmbeddedTor is not safe for concurrent Start and Stop calls; the CLI
// starts it once before any fetch and stops it on exit.
type EmbeddedTor struct {
	// process is the running daemon, nil before Start and after Stop.
	process *tornago.TorProcess

	// socksAddr and controlAddr are the listeners chosen by the OS.
	socksAddr   string
	controlAddr string

	// startupTimeout bounds the bootstrap wait.
	startupTimeout time.Duration
}

// EmbeddedTorOption configures an EmbeddedTor instance.
type EmbeddedTorOption func(*EmbeddedTor)

// WithStartupTimeout sets the maximum time to wait for Tor to bootstrap.
func WithStartupTimeout(timeout time.Duration) EmbeddedTorOption {
	return func(e *EmbeddedTor) {
		e.startupTimeout = timeout
	}
}

// NewEmbeddedTor creates a daemon manager. Nothing is started until Start,
// so creating one is cheap even when --tor is never given.
func NewEmbeddedTor(opts ...EmbeddedTorOption) *EmbeddedTor {
	e := &EmbeddedTor{
		startupTimeout: DefaultStartupTimeout,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Start launches the daemon on OS-assigned ports and blocks until it has
// bootstrapped or the startup timeout expires. If ctx is cancelled meanwhile
// the daemon is stopped again and ctx.Err() is returned.
//
// Both listeners bind ":0" so several burrow processes, or a system Tor on
// 9050, never collide.
func (e *EmbeddedTor) Start(ctx context.Context) error {
	launchCfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(e.startupTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create Tor launch config: %w", err)
	}

	process, err := tornago.StartTorDaemon(launchCfg)
	if err != nil {
		return fmt.Errorf("failed to start embedded Tor daemon: %w", err)
	}

	// tornago's bootstrap wait does not take a context.
	if err := ctx.Err(); err != nil {
		_ = process.Stop()
		return err
	}

	e.process = process
	e.socksAddr = process.SocksAddr()
	e.controlAddr = process.ControlAddr()

	return nil
}

// Stop shuts the daemon down.
// It is safe on a stopped or unstarted instance.
func (e *EmbeddedTor) Stop() error {
	if e.process == nil {
		return nil
	}

	err := e.process.Stop()
	e.process = nil
	e.socksAddr = ""
	e.controlAddr = ""
	return err
}

// SocksAddr returns the SOCKS5 address ("127.0.0.1:port"), empty when not running.
func (e *EmbeddedTor) SocksAddr() string {
	return e.socksAddr
}

// ControlAddr returns the control port address, empty when not running.
func (e *EmbeddedTor) ControlAddr() string {
	return e.controlAddr
}

// IsRunning reports whether the daemon is running.
func (e *EmbeddedTor) IsRunning() bool {
	return e.process != nil
}

// NewClient returns a SOCKS5 client for the running daemon, or ErrNotRunning
// before Start. The timeout has the same meaning as in the package NewClient.
func (e *EmbeddedTor) NewClient(timeout time.Duration) (*Client, error) {
	if !e.IsRunning() {
		return nil, ErrNotRunning
	}

	return NewClient(e.socksAddr, timeout)
}
