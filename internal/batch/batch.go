package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/burrow/internal/gopher"
	"github.com/nao1215/burrow/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of fetches run at once unless configured.
const DefaultConcurrency = 4

// Fetcher runs one fetch to completion. *gopher.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, req gopher.Request) (*model.Page, error)
}

// Outcome is the result of one request of a batch.
type Outcome struct {
	// Index is the position of the request in the batch.
	Index int

	// Request is the request as given.
	Request gopher.Request

	// Page is set on success.
	Page *model.Page

	// Err is set on failure, including requests never started because the
	// batch was cancelled.
	Err error

	// Elapsed is the time spent in the fetch. Zero for requests never started.
	Elapsed time.Duration
}

// BatchFetcher fans a list of requests out over a bounded number of goroutines.
// A failed request does not stop the others.
type BatchFetcher struct {
	fetcher     Fetcher
	concurrency int
	logger      *slog.Logger
}

// Option configures a BatchFetcher.
type Option func(*BatchFetcher)

// WithConcurrency sets the maximum number of concurrent fetches.
// Non-positive values keep the default.
func WithConcurrency(n int) Option {
	return func(b *BatchFetcher) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithLogger sets the logger for batch progress.
func WithLogger(logger *slog.Logger) Option {
	return func(b *BatchFetcher) {
		b.logger = logger
	}
}

// New creates a BatchFetcher.
func New(fetcher Fetcher, opts ...Option) *BatchFetcher {
	b := &BatchFetcher{
		fetcher:     fetcher,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// FetchAll runs every request and returns the outcomes in request order.
// The error is non-nil only when ctx was cancelled.
func (b *BatchFetcher) FetchAll(ctx context.Context, requests []gopher.Request) ([]Outcome, error) {
	outcomes := make([]Outcome, len(requests))
	err := b.FetchAllWithCallback(ctx, requests, func(o Outcome) {
		// Each index is written by exactly one goroutine.
		outcomes[o.Index] = o
	})
	return outcomes, err
}

// FetchAllWithCallback runs every request and calls callback once per request
// as soon as it finishes. The callback runs on the fetching goroutine, so it
// must be safe for concurrent use.
func (b *BatchFetcher) FetchAllWithCallback(ctx context.Context, requests []gopher.Request, callback func(Outcome)) error {
	b.logger.Debug("starting batch",
		"total", len(requests),
		"concurrency", b.concurrency,
	)
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, req := range requests {
		g.Go(func() error {
			outcome := Outcome{Index: i, Request: req}

			if err := ctx.Err(); err != nil {
				outcome.Err = err
				callback(outcome)
				return err
			}

			started := time.Now()
			outcome.Page, outcome.Err = b.fetcher.Fetch(ctx, req)
			outcome.Elapsed = time.Since(started)
			if outcome.Err != nil {
				b.logger.Info("batch fetch failed",
					"url", req.Address.URL(),
					"kind", gopher.KindOf(outcome.Err).String(),
				)
			}
			callback(outcome)
			return nil
		})
	}

	err := g.Wait()

	b.logger.Debug("batch complete",
		"total", len(requests),
		"elapsed", time.Since(start),
	)

	return err
}
