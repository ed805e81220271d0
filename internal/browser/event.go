package browser

import (
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/burrow/internal/gopher"
	"github.com/nao1215/burrow/internal/model"
)

// EventKind is the kind of a session event.
type EventKind int

const (
	// EventProgress reports the bytes received so far.
	EventProgress EventKind = iota
	// EventLoaded carries a decoded page.
	EventLoaded
	// EventFailed carries a *gopher.FetchError.
	EventFailed
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventLoaded:
		return "loaded"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is a transport signal handed over to the caller's loop.
type Event struct {
	Kind    EventKind
	FetchID uuid.UUID
	Address model.Address

	// Bytes is the cumulative byte count of a progress event.
	Bytes int64

	// Page is set for EventLoaded.
	Page *model.Page

	// Err is set for EventFailed.
	Err error

	// Elapsed is set for EventLoaded and EventFailed.
	Elapsed time.Duration
}

// ErrorKind returns the failure kind of an EventFailed.
func (e Event) ErrorKind() gopher.ErrorKind {
	return gopher.KindOf(e.Err)
}

// Listener receives the outcome of the active fetch.
type Listener interface {
	OnPageLoaded(page *model.Page)
	OnPageLoadFailed(kind gopher.ErrorKind, address model.Address)
	OnProgress(address model.Address, received int64)
}
