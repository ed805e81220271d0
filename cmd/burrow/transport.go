package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/burrow/internal/config"
	"github.com/nao1215/burrow/internal/database"
	"github.com/nao1215/burrow/internal/gopher"
	"github.com/nao1215/burrow/internal/model"
	"github.com/nao1215/burrow/internal/tor"
)

// route is everything that decides how a host is reached.
type route struct {
	settings config.HostConfig
	viaTor   bool
}

// router sends each fetch through a gopher.Client chosen by the settings of
// the target host. Clients are built on first use and shared by every host
// with the same route. When a fetch log is attached, every finished fetch is
// recorded, including failed and cancelled ones.
type router struct {
	cfg    *config.Config
	logger *slog.Logger

	// torDialer is the embedded daemon's SOCKS5 client, nil without --tor.
	torDialer *tor.Client

	visits *database.VisitLog
	wg     sync.WaitGroup

	mu      sync.Mutex
	clients map[route]*gopher.Client
}

func newRouter(cfg *config.Config, logger *slog.Logger, torDialer *tor.Client, visits *database.VisitLog) *router {
	return &router{
		cfg:       cfg,
		logger:    logger,
		torDialer: torDialer,
		visits:    visits,
		clients:   make(map[route]*gopher.Client),
	}
}

// FetchAsync starts a fetch on the client for the request's host.
func (r *router) FetchAsync(ctx context.Context, req gopher.Request) *gopher.Fetch {
	f := r.clientFor(req.Address.Host).FetchAsync(ctx, req)
	if r.visits != nil {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			result := f.Wait()
			r.record(ctx, f.ID, req.Address, result)
		}()
	}
	return f
}

// Fetch runs a fetch to completion.
func (r *router) Fetch(ctx context.Context, req gopher.Request) (*model.Page, error) {
	result := r.FetchAsync(ctx, req).Wait()
	return result.Page, result.Err
}

// Wait blocks until every started fetch has been recorded.
func (r *router) Wait() {
	r.wg.Wait()
}

func (r *router) routeFor(host string) route {
	settings := r.cfg.HostSettings(host)
	return route{
		settings: settings,
		viaTor:   r.torDialer != nil && settings.Proxy == "" && !r.cfg.File.ForcesDirect(host),
	}
}

func (r *router) clientFor(host string) *gopher.Client {
	rt := r.routeFor(host)

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[rt]; ok {
		return c
	}
	c := r.newClient(rt)
	r.clients[rt] = c
	return c
}

func (r *router) newClient(rt route) *gopher.Client {
	var dialer gopher.Dialer = &net.Dialer{}
	proxied := false

	switch {
	case rt.settings.Proxy != "":
		c, err := tor.NewClient(rt.settings.Proxy, rt.settings.Timeout)
		if err != nil {
			r.logger.Warn("unusable proxy", "proxy", rt.settings.Proxy, "error", err)
			return gopher.NewClient(
				gopher.WithHostCheck(func(string) error { return err }),
				gopher.WithLogger(r.logger),
			)
		}
		dialer, proxied = c, true
	case rt.viaTor:
		dialer, proxied = r.torDialer, true
	}

	r.logger.Debug("new transport",
		"proxy", rt.settings.Proxy,
		"tor", rt.viaTor,
		"timeout", rt.settings.Timeout,
		"read_timeout", rt.settings.ReadTimeout,
	)

	return gopher.NewClient(
		gopher.WithDialer(dialer),
		gopher.WithTimeout(rt.settings.Timeout),
		gopher.WithReadTimeout(rt.settings.ReadTimeout),
		gopher.WithChunkSize(r.cfg.ChunkSize),
		gopher.WithMaxResponseSize(r.cfg.MaxResponseSize),
		gopher.WithHostCheck(tor.HostPolicy(proxied)),
		gopher.WithLogger(r.logger),
	)
}

// record writes a finished fetch to the fetch log.
// It runs after the caller may have cancelled ctx, so only its values are kept.
func (r *router) record(ctx context.Context, id uuid.UUID, addr model.Address, result gopher.Result) {
	visit := database.NewVisit(id, addr, result.Page, result.Err, result.Elapsed)
	if _, err := r.visits.Record(context.WithoutCancel(ctx), visit); err != nil {
		r.logger.Warn("failed to record fetch", "url", addr.URL(), "error", err)
	}
}

// transport is the fetch side of a command: the router plus whatever has to
// be shut down after it.
type transport struct {
	*router

	visits   *database.VisitLog
	embedded *tor.EmbeddedTor
	logger   *slog.Logger
}

// openTransport opens the fetch log, verifies or starts Tor as configured
// and returns a ready router. Progress messages about Tor go to status.
func openTransport(ctx context.Context, cfg *config.Config, logger *slog.Logger, status io.Writer) (*transport, error) {
	t := &transport{logger: logger}

	if cfg.SaveToDB {
		visits, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open fetch log: %w", err)
		}
		t.visits = visits
		logger.Debug("fetch log opened", "path", visits.Path())
	}

	var torDialer *tor.Client
	switch {
	case cfg.ProxyAddress != "":
		if err := checkProxy(ctx, cfg.ProxyAddress, cfg.Timeout, logger); err != nil {
			t.Close()
			return nil, err
		}
	case cfg.UseEmbeddedTor:
		embedded, client, err := startEmbeddedTor(ctx, cfg, logger, status)
		if err != nil {
			t.Close()
			return nil, err
		}
		t.embedded = embedded
		torDialer = client
	}

	t.router = newRouter(cfg, logger, torDialer, t.visits)
	return t, nil
}

// Close waits for pending fetch log writes, then releases the fetch log and
// the embedded Tor daemon.
func (t *transport) Close() {
	if t.router != nil {
		t.Wait()
	}
	if t.visits != nil {
		if err := t.visits.Close(); err != nil {
			t.logger.Warn("failed to close fetch log", "error", err)
		}
	}
	if t.embedded != nil {
		t.logger.Info("stopping embedded Tor daemon")
		if err := t.embedded.Stop(); err != nil {
			t.logger.Error("failed to stop embedded Tor", "error", err)
		}
	}
}

// checkProxy verifies that a SOCKS5 proxy answers before any fetch uses it.
func checkProxy(ctx context.Context, address string, timeout time.Duration, logger *slog.Logger) error {
	client, err := tor.NewClient(address, timeout)
	if err != nil {
		return fmt.Errorf("invalid proxy: %w", err)
	}

	if status := client.CheckConnection(ctx); status != tor.ProxyStatusOK {
		return fmt.Errorf("proxy check failed: %w (make sure a SOCKS5 proxy is running at %s)",
			status.Error(), client.ProxyAddress())
	}

	logger.Info("SOCKS5 proxy verified", "proxy", client.ProxyAddress(), "auth", client.HasAuth())
	return nil
}

// startEmbeddedTor starts a private Tor daemon through tornago and returns
// it with a verified SOCKS5 client.
func startEmbeddedTor(ctx context.Context, cfg *config.Config, logger *slog.Logger, status io.Writer) (*tor.EmbeddedTor, *tor.Client, error) {
	fmt.Fprintln(status, "Starting embedded Tor daemon...")
	fmt.Fprintln(status, "This may take 1-3 minutes while Tor bootstraps and connects to the network.")

	embedded := tor.NewEmbeddedTor(tor.WithStartupTimeout(cfg.TorStartupTimeout))
	if err := embedded.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	logger.Info("embedded Tor daemon started",
		"socks", embedded.SocksAddr(),
		"control", embedded.ControlAddr(),
	)

	client, err := embedded.NewClient(cfg.Timeout)
	if err != nil {
		_ = embedded.Stop() //nolint:errcheck // Best effort cleanup
		return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
	}

	if st := client.CheckConnection(ctx); st != tor.ProxyStatusOK {
		_ = embedded.Stop() //nolint:errcheck // Best effort cleanup
		return nil, nil, fmt.Errorf("embedded Tor proxy check failed: %w", st.Error())
	}

	fmt.Fprintf(status, "Embedded Tor ready, SOCKS proxy at %s\n\n", embedded.SocksAddr())
	return embedded, client, nil
}
