package history

import (
	"sync"

	"github.com/nao1215/burrow/internal/model"
)

// History is a branching back/forward list of visited pages.
//
// Entries are ordered oldest first and the cursor points at the page being
// shown. Visiting a new page while the cursor is not at the end discards the
// entries after the cursor. History is safe for concurrent use.
type History struct {
	mu      sync.RWMutex
	entries []*model.Page
	cursor  int
}

// New creates an empty history.
func New() *History {
	return &History{cursor: -1}
}

// Visit records a page as the current entry.
// It returns false when the page has the same address as the current entry,
// in which case the history is unchanged.
func (h *History) Visit(page *model.Page) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cursor >= 0 && h.entries[h.cursor].Address.Equal(page.Address) {
		return false
	}

	// Truncate the forward branch.
	if h.cursor < len(h.entries)-1 {
		clear(h.entries[h.cursor+1:])
		h.entries = h.entries[:h.cursor+1]
	}
	h.entries = append(h.entries, page)
	h.cursor = len(h.entries) - 1
	return true
}

// Back moves the cursor one entry back and returns that entry.
func (h *History) Back() (*model.Page, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cursor <= 0 {
		return nil, false
	}
	h.cursor--
	return h.entries[h.cursor], true
}

// Forward moves the cursor one entry forward and returns that entry.
func (h *History) Forward() (*model.Page, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cursor >= len(h.entries)-1 {
		return nil, false
	}
	h.cursor++
	return h.entries[h.cursor], true
}

// Replace swaps the current entry for a fresh copy of the same address,
// as after a reload. It returns false if the history is empty or the
// addresses differ.
func (h *History) Replace(page *model.Page) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cursor < 0 || !h.entries[h.cursor].Address.Equal(page.Address) {
		return false
	}
	h.entries[h.cursor] = page
	return true
}

// CanGoBack reports whether there is an entry before the cursor.
func (h *History) CanGoBack() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cursor > 0
}

// CanGoForward reports whether there is an entry after the cursor.
func (h *History) CanGoForward() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cursor < len(h.entries)-1
}

// Current returns the entry at the cursor, or nil when the history is empty.
func (h *History) Current() *model.Page {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.cursor < 0 {
		return nil
	}
	return h.entries[h.cursor]
}

// Cursor returns the cursor position, -1 when empty.
func (h *History) Cursor() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cursor
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Entries returns a copy of the entries, oldest first.
func (h *History) Entries() []*model.Page {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*model.Page, len(h.entries))
	copy(out, h.entries)
	return out
}

// Clear removes every entry.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
	h.cursor = -1
}
