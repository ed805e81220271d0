package gopher

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/burrow/internal/model"
)

const (
	// DefaultTimeout bounds connecting and writing the request.
	DefaultTimeout = 30 * time.Second

	// DefaultReadTimeout is the longest the server may stay silent between chunks.
	DefaultReadTimeout = 30 * time.Second

	// DefaultChunkSize is the size of a single socket read.
	DefaultChunkSize = 8 * 1024

	// DefaultMaxResponseSize caps buffered responses. Sink fetches are not capped.
	DefaultMaxResponseSize = 64 * 1024 * 1024
)

// Dialer opens the TCP connection for a fetch.
// *net.Dialer and the SOCKS5 dialers of golang.org/x/net/proxy satisfy it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Client performs Gopher round trips.
//
// A Client holds configuration only; it keeps no per-fetch state, so one
// Client may run any number of fetches at once. The *Fetch returned by
// FetchAsync is the handle used to wait for or cancel a particular fetch.
type Client struct {
	dialer          Dialer
	timeout         time.Duration
	readTimeout     time.Duration
	chunkSize       int
	maxResponseSize int64
	hostCheck       func(host string) error
	logger          *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithDialer sets the dialer used to reach servers.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

// WithTimeout sets the connect timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithReadTimeout sets the idle timeout applied to every read.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.readTimeout = timeout
	}
}

// WithChunkSize sets the read buffer size.
func WithChunkSize(size int) Option {
	return func(c *Client) {
		c.chunkSize = size
	}
}

// WithMaxResponseSize sets the limit for buffered responses. Zero disables the limit.
func WithMaxResponseSize(size int64) Option {
	return func(c *Client) {
		c.maxResponseSize = size
	}
}

// WithHostCheck installs a check run before dialing. A non-nil error fails
// the fetch with KindInvalidURL.
func WithHostCheck(check func(host string) error) Option {
	return func(c *Client) {
		c.hostCheck = check
	}
}

// WithLogger sets the logger for fetch events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client that dials directly unless WithDialer is given.
func NewClient(opts ...Option) *Client {
	c := &Client{
		dialer:          &net.Dialer{},
		timeout:         DefaultTimeout,
		readTimeout:     DefaultReadTimeout,
		chunkSize:       DefaultChunkSize,
		maxResponseSize: DefaultMaxResponseSize,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.chunkSize <= 0 {
		c.chunkSize = DefaultChunkSize
	}

	return c
}

// Request describes one fetch.
type Request struct {
	// ID identifies the fetch. A zero ID is replaced by a random one.
	ID uuid.UUID

	// Address is the resource to fetch.
	Address model.Address

	// Type is the expected content type. ItemTypeUnknown means "use the
	// address type prefix", and a menu parse is attempted when that is absent too.
	Type model.ItemType

	// Query holds the search terms of a full-text search item.
	// It is sent as "selector TAB query".
	Query string

	// OnProgress, when set, is called on the fetch goroutine after every
	// chunk with the number of bytes received so far.
	OnProgress func(received int64)

	// Sink, when set, receives the body instead of the page buffer.
	Sink io.Writer
}

// requestType returns the type used to decode the response.
// Search servers answer with a menu.
func (r Request) requestType() model.ItemType {
	t := r.Type
	if t == model.ItemTypeUnknown {
		t = r.Address.ItemType()
	}
	if t == model.ItemTypeFullTextSearch {
		return model.ItemTypeMenu
	}
	return t
}

// RequestLine returns the bytes written to the server for this request.
func (r Request) RequestLine() string {
	if r.Query != "" {
		return r.Address.Selector + "\t" + r.Query + "\r\n"
	}
	return r.Address.Selector + "\r\n"
}

// FetchAsync starts a fetch on its own goroutine and returns immediately.
// Cancelling ctx has the same effect as calling Cancel on the returned Fetch.
func (c *Client) FetchAsync(ctx context.Context, req Request) *Fetch {
	id := req.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	f := newFetch(ctx, id, req.Address)
	go c.run(f, req)
	return f
}

// Fetch runs a fetch and waits for it to finish.
func (c *Client) Fetch(ctx context.Context, req Request) (*model.Page, error) {
	result := c.FetchAsync(ctx, req).Wait()
	return result.Page, result.Err
}

// run is the body of the fetch goroutine.
func (c *Client) run(f *Fetch, req Request) {
	start := time.Now()
	c.logger.Debug("fetch started",
		"id", f.ID.String(),
		"url", req.Address.URL(),
		"selector", req.Address.Selector,
		"query", req.Query,
	)

	page, err := c.roundTrip(f, req)
	elapsed := time.Since(start)

	if err != nil {
		cancelled := f.cancelled.Load() || errors.Is(f.ctx.Err(), context.Canceled)
		kind := classify(err, cancelled)
		var fe *FetchError
		if !errors.As(err, &fe) {
			cause := err
			if errors.Is(err, ErrUserCancelled) {
				cause = nil
			}
			fe = &FetchError{Kind: kind, Address: req.Address, Err: cause}
		}
		if kind == KindUserCancelled {
			c.logger.Debug("fetch cancelled", "id", f.ID.String(), "url", req.Address.URL())
		} else {
			c.logger.Info("fetch failed",
				"id", f.ID.String(),
				"url", req.Address.URL(),
				"kind", kind.String(),
				"error", err,
			)
		}
		f.finish(Result{Err: fe, Elapsed: elapsed})
		return
	}

	c.logger.Debug("fetch complete",
		"id", f.ID.String(),
		"url", req.Address.URL(),
		"type", page.Type.String(),
		"bytes", page.Size,
		"duration", elapsed,
	)
	f.finish(Result{Page: page, Elapsed: elapsed})
}

// roundTrip dials, writes the request line and reads until EOF.
func (c *Client) roundTrip(f *Fetch, req Request) (*model.Page, error) {
	addr := req.Address
	if addr.Host == "" {
		return nil, &FetchError{Kind: KindInvalidURL, Address: addr, Err: model.ErrEmptyHost}
	}
	if c.hostCheck != nil {
		if err := c.hostCheck(addr.Host); err != nil {
			return nil, &FetchError{Kind: KindInvalidURL, Address: addr, Err: err}
		}
	}

	dialCtx, cancel := context.WithTimeout(f.ctx, c.timeout)
	conn, err := c.dialer.DialContext(dialCtx, "tcp", addr.HostPort())
	cancel()
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr.HostPort(), err)
	}
	if !f.attach(conn) {
		_ = conn.Close()
		return nil, ErrUserCancelled
	}
	defer f.detach()

	if err := conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := io.WriteString(conn, req.RequestLine()); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	var body bytes.Buffer
	hasher := sha256.New()
	var received int64
	buf := make([]byte, c.chunkSize)

	for {
		if c.readTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
				return nil, fmt.Errorf("set read deadline: %w", err)
			}
		}

		n, err := conn.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			received += int64(n)
			if req.Sink != nil {
				if _, werr := req.Sink.Write(chunk); werr != nil {
					return nil, &FetchError{Kind: KindUnknownException, Address: addr, Err: fmt.Errorf("write sink: %w", werr)}
				}
				hasher.Write(chunk)
			} else {
				if c.maxResponseSize > 0 && received > c.maxResponseSize {
					return nil, &FetchError{Kind: KindUnknownException, Address: addr, Err: ErrResponseTooLarge}
				}
				body.Write(chunk)
			}
			if req.OnProgress != nil {
				req.OnProgress(received)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
	}

	// A cancel that raced with EOF still wins.
	if f.cancelled.Load() {
		return nil, ErrUserCancelled
	}
	if err := f.ctx.Err(); err != nil {
		return nil, err
	}

	var page *model.Page
	if req.Sink != nil {
		hash := ""
		if received > 0 {
			hash = hex.EncodeToString(hasher.Sum(nil))
		}
		page = model.NewStreamedPage(addr, req.requestType(), received, hash)
	} else {
		page = model.DecodePage(body.Bytes(), req.requestType(), addr)
	}
	page.Query = req.Query
	page.FetchedAt = time.Now()
	return page, nil
}
