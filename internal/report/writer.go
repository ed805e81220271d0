package report

import (
	"io"
	"time"

	"github.com/nao1215/burrow/internal/gopher"
	"github.com/nao1215/burrow/internal/media"
	"github.com/nao1215/burrow/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs a single entry and returns the number of bytes written.
	Write(entry *Entry) (int, error)

	// WriteAll outputs the entries of a batch in order.
	WriteAll(entries []*Entry) (int, error)
}

// Entry is one fetched target.
type Entry struct {
	// Target is the argument as given: a URL or an @bookmark.
	Target string

	// Address is where the target resolved to. Zero when it did not parse.
	Address model.Address

	// Page is the decoded response. Nil on failure.
	Page *model.Page

	// Err is the fetch error. Nil on success.
	Err error

	// Elapsed is the fetch duration.
	Elapsed time.Duration

	// Image is the metadata of an image page, when it was inspected.
	Image *media.Info

	// SavedTo is the file a streamed body was written to.
	SavedTo string
}

// URL returns the fetched URL, falling back to the raw target.
func (e *Entry) URL() string {
	switch {
	case e.Page != nil:
		return e.Page.URL
	case !e.Address.IsZero():
		return e.Address.URL()
	default:
		return e.Target
	}
}

// Failed reports whether the fetch failed. A cancelled fetch counts as failed.
func (e *Entry) Failed() bool {
	return e.Err != nil
}

// ErrorKind returns the failure class name, or "" on success.
func (e *Entry) ErrorKind() string {
	if e.Err == nil {
		return ""
	}
	return gopher.KindOf(e.Err).String()
}

// hasInlineText reports whether the page body is text to show inline.
func (e *Entry) hasInlineText() bool {
	p := e.Page
	return p != nil && !p.IsMenu() && !p.IsStreamed() && !p.Type.IsBinary() && p.Raw != nil
}

// countFailures returns the number of failed entries.
func countFailures(entries []*Entry) int {
	n := 0
	for _, e := range entries {
		if e.Failed() {
			n++
		}
	}
	return n
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
