package gopher

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/burrow/internal/model"
)

// Result is the outcome of a fetch: exactly one of Page and Err is set.
type Result struct {
	// Page is the decoded response on success.
	Page *model.Page

	// Err is a *FetchError on failure.
	Err error

	// Elapsed is the wall time from start to completion.
	Elapsed time.Duration
}

// Fetch is the handle of one in-flight fetch.
// It is safe to use from any goroutine.
type Fetch struct {
	// ID identifies the fetch in logs, events and the fetch log.
	ID uuid.UUID

	// Address is the address being fetched.
	Address model.Address

	// Started is when the fetch was created.
	Started time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	stopClose func() bool

	mu   sync.Mutex
	conn net.Conn

	cancelled atomic.Bool
	done      chan Result
	finished  chan struct{}
	result    Result
}

func newFetch(parent context.Context, id uuid.UUID, addr model.Address) *Fetch {
	ctx, cancel := context.WithCancel(parent)
	f := &Fetch{
		ID:       id,
		Address:  addr,
		Started:  time.Now(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan Result, 1),
		finished: make(chan struct{}),
	}
	// Closing the socket unblocks a pending read when the context ends.
	f.stopClose = context.AfterFunc(ctx, f.closeConn)
	return f
}

// Done returns a channel that receives the result once.
func (f *Fetch) Done() <-chan Result {
	return f.done
}

// Wait blocks until the fetch finishes and returns its result.
// It may be called any number of times, before or after Done is read.
func (f *Fetch) Wait() Result {
	<-f.finished
	return f.result
}

// Cancel aborts the fetch by closing its connection. The fetch then finishes
// with KindUserCancelled, unless it had already finished. Cancel is idempotent.
func (f *Fetch) Cancel() {
	f.cancelled.Store(true)
	f.cancel()
}

// Cancelled reports whether Cancel was called.
func (f *Fetch) Cancelled() bool {
	return f.cancelled.Load()
}

// attach registers the connection so Cancel can close it.
// It returns false if the fetch was cancelled while dialing.
func (f *Fetch) attach(conn net.Conn) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ctx.Err() != nil {
		return false
	}
	f.conn = conn
	return true
}

// detach closes and forgets the connection.
func (f *Fetch) detach() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		_ = f.conn.Close()
		f.conn = nil
	}
}

// closeConn closes the connection from the cancelling side.
func (f *Fetch) closeConn() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		_ = f.conn.Close()
	}
}

// finish publishes the result and releases the context.
func (f *Fetch) finish(r Result) {
	f.stopClose()
	f.result = r
	close(f.finished)
	f.done <- r
	f.cancel()
}
