package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/nao1215/burrow/internal/gopher"
	"github.com/nao1215/burrow/internal/history"
	"github.com/nao1215/burrow/internal/model"
)

// DefaultEventBuffer is the capacity of the events channel.
const DefaultEventBuffer = 64

// Fetcher starts fetches. *gopher.Client implements it.
type Fetcher interface {
	FetchAsync(ctx context.Context, req gopher.Request) *gopher.Fetch
}

// Session is an interactive browsing session.
//
// At most one fetch is active at a time: starting a fetch cancels the one in
// flight. Fetch goroutines never touch session state directly. Their signals
// are queued on Events and take effect only when the caller's loop passes
// them to Handle, so history and the listener are only used from that loop.
type Session struct {
	fetcher Fetcher
	history *history.History
	logger  *slog.Logger

	events chan Event
	quit   chan struct{}
	once   sync.Once

	mu     sync.Mutex
	active *gopher.Fetch
	reload bool
}

// Option configures a Session.
type Option func(*sessionConfig)

type sessionConfig struct {
	history     *history.History
	logger      *slog.Logger
	eventBuffer int
}

// WithHistory uses an existing history instead of a new one.
func WithHistory(h *history.History) Option {
	return func(c *sessionConfig) {
		c.history = h
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *sessionConfig) {
		c.logger = logger
	}
}

// WithEventBuffer sets the capacity of the events channel.
func WithEventBuffer(n int) Option {
	return func(c *sessionConfig) {
		c.eventBuffer = n
	}
}

// New creates a Session that fetches through fetcher.
func New(fetcher Fetcher, opts ...Option) *Session {
	cfg := &sessionConfig{
		logger:      slog.Default(),
		eventBuffer: DefaultEventBuffer,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.history == nil {
		cfg.history = history.New()
	}
	if cfg.eventBuffer < 1 {
		cfg.eventBuffer = 1
	}

	return &Session{
		fetcher: fetcher,
		history: cfg.history,
		logger:  cfg.logger,
		events:  make(chan Event, cfg.eventBuffer),
		quit:    make(chan struct{}),
	}
}

// Events returns the channel the caller's loop reads.
func (s *Session) Events() <-chan Event {
	return s.events
}

// History returns the session history.
func (s *Session) History() *history.History {
	return s.history
}

// Active returns the fetch in flight, or nil.
func (s *Session) Active() *gopher.Fetch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Open cancels the active fetch, if any, and starts fetching addr.
func (s *Session) Open(ctx context.Context, addr model.Address, typ model.ItemType, query string) *gopher.Fetch {
	return s.start(ctx, gopher.Request{Address: addr, Type: typ, Query: query}, false)
}

// OpenURL parses raw and opens it.
func (s *Session) OpenURL(ctx context.Context, raw, query string) (*gopher.Fetch, error) {
	addr, err := model.ParseAddress(raw)
	if err != nil {
		return nil, err
	}
	return s.Open(ctx, addr, model.ItemTypeUnknown, query), nil
}

// Follow opens the target of a menu item.
func (s *Session) Follow(ctx context.Context, item model.Item) (*gopher.Fetch, error) {
	if item.IsExternal() {
		return nil, fmt.Errorf("%w: %s", ErrExternalLink, item.ResolvedURL())
	}
	if !item.IsNavigable() {
		return nil, ErrNotNavigable
	}
	if item.Type == model.ItemTypeFullTextSearch {
		return nil, ErrQueryRequired
	}
	return s.Open(ctx, item.Address(), item.Type, ""), nil
}

// Search runs a full-text search item with the given terms.
func (s *Session) Search(ctx context.Context, item model.Item, query string) (*gopher.Fetch, error) {
	if item.Type != model.ItemTypeFullTextSearch {
		return nil, ErrNotNavigable
	}
	if query == "" {
		return nil, ErrQueryRequired
	}
	return s.Open(ctx, item.Address(), model.ItemTypeMenu, query), nil
}

// Reload fetches the current page again. The result replaces the current
// history entry instead of adding one.
func (s *Session) Reload(ctx context.Context) (*gopher.Fetch, error) {
	current := s.history.Current()
	if current == nil {
		return nil, ErrNoCurrentPage
	}
	req := gopher.Request{Address: current.Address, Query: current.Query}
	return s.start(ctx, req, true), nil
}

// Back cancels the active fetch and moves back in history without refetching.
func (s *Session) Back() (*model.Page, bool) {
	s.Cancel()
	return s.history.Back()
}

// Forward cancels the active fetch and moves forward in history without refetching.
func (s *Session) Forward() (*model.Page, bool) {
	s.Cancel()
	return s.history.Forward()
}

// Cancel cancels the active fetch. Its failure is still delivered.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.active.Cancel()
	}
}

// Close cancels the active fetch and stops event delivery.
func (s *Session) Close() {
	s.Cancel()
	s.once.Do(func() { close(s.quit) })
}

func (s *Session) start(ctx context.Context, req gopher.Request, reload bool) *gopher.Fetch {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		s.logger.Debug("superseding active fetch", "id", s.active.ID.String())
		s.active.Cancel()
	}

	req.ID = uuid.New()
	id, addr := req.ID, req.Address
	req.OnProgress = func(received int64) {
		s.offer(Event{Kind: EventProgress, FetchID: id, Address: addr, Bytes: received})
	}

	f := s.fetcher.FetchAsync(ctx, req)
	s.active = f
	s.reload = reload

	go s.forward(f)
	return f
}

// forward hands the result of f to the caller's loop.
func (s *Session) forward(f *gopher.Fetch) {
	var result gopher.Result
	select {
	case result = <-f.Done():
	case <-s.quit:
		return
	}

	ev := Event{
		Kind:    EventLoaded,
		FetchID: f.ID,
		Address: f.Address,
		Page:    result.Page,
		Err:     result.Err,
		Elapsed: result.Elapsed,
	}
	if result.Err != nil {
		ev.Kind = EventFailed
	}

	select {
	case s.events <- ev:
	case <-s.quit:
	}
}

// offer queues a progress event, dropping it when the loop is behind.
func (s *Session) offer(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}

// Handle applies an event on the caller's loop. Events of superseded fetches
// are dropped. A loaded page of the active fetch is committed to history
// before the listener sees it. The return value reports whether the event
// was applied.
func (s *Session) Handle(ev Event, l Listener) bool {
	s.mu.Lock()
	current := s.active != nil && s.active.ID == ev.FetchID
	reload := s.reload
	if current && ev.Kind != EventProgress {
		s.active = nil
		s.reload = false
	}
	s.mu.Unlock()

	if !current {
		s.logger.Debug("dropping event of superseded fetch",
			"id", ev.FetchID.String(),
			"kind", ev.Kind.String(),
		)
		return false
	}

	switch ev.Kind {
	case EventProgress:
		if l != nil {
			l.OnProgress(ev.Address, ev.Bytes)
		}
	case EventLoaded:
		if !reload || !s.history.Replace(ev.Page) {
			s.history.Visit(ev.Page)
		}
		if l != nil {
			l.OnPageLoaded(ev.Page)
		}
	case EventFailed:
		if l != nil {
			l.OnPageLoadFailed(ev.ErrorKind(), ev.Address)
		}
	}
	return true
}
