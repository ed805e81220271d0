package history

import (
	"sync"
	"testing"

	"github.com/nao1215/burrow/internal/model"
)

func page(selector string) *model.Page {
	return &model.Page{
		Address: model.NewAddress("example.org", 70, selector),
		Type:    model.ItemTypeMenu,
	}
}

func selectors(h *History) []string {
	var out []string
	for _, p := range h.Entries() {
		out = append(out, p.Address.Selector)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestHistoryEmpty tests the initial state.
func TestHistoryEmpty(t *testing.T) {
	t.Parallel()

	h := New()
	if h.Cursor() != -1 || h.Len() != 0 || h.Current() != nil {
		t.Errorf("unexpected initial state: cursor=%d len=%d", h.Cursor(), h.Len())
	}
	if h.CanGoBack() || h.CanGoForward() {
		t.Error("empty history should not navigate")
	}
	if _, ok := h.Back(); ok {
		t.Error("expected Back to fail")
	}
	if _, ok := h.Forward(); ok {
		t.Error("expected Forward to fail")
	}
}

// TestHistoryVisit tests appending and deduplication.
func TestHistoryVisit(t *testing.T) {
	t.Parallel()

	t.Run("first visit sets cursor to zero", func(t *testing.T) {
		t.Parallel()

		h := New()
		if !h.Visit(page("/a")) {
			t.Error("expected visit to be recorded")
		}
		if h.Cursor() != 0 || h.Len() != 1 {
			t.Errorf("got cursor=%d len=%d", h.Cursor(), h.Len())
		}
	})

	t.Run("revisiting the current address is a no-op", func(t *testing.T) {
		t.Parallel()

		h := New()
		h.Visit(page("/a"))
		if h.Visit(page("/a")) {
			t.Error("expected duplicate to be ignored")
		}
		if h.Len() != 1 {
			t.Errorf("expected 1 entry, got %d", h.Len())
		}
	})

	t.Run("duplicate in the middle keeps the forward branch", func(t *testing.T) {
		t.Parallel()

		h := New()
		h.Visit(page("/a"))
		h.Visit(page("/b"))
		h.Visit(page("/c"))
		h.Back()
		if h.Visit(page("/b")) {
			t.Error("expected duplicate to be ignored")
		}
		if !equalStrings(selectors(h), []string{"/a", "/b", "/c"}) || h.Cursor() != 1 {
			t.Errorf("got %v cursor=%d", selectors(h), h.Cursor())
		}
	})

	t.Run("host case does not matter", func(t *testing.T) {
		t.Parallel()

		h := New()
		h.Visit(&model.Page{Address: model.NewAddress("Example.ORG", 70, "/a")})
		if h.Visit(page("/a")) {
			t.Error("expected host comparison to ignore case")
		}
	})
}

// TestHistoryBranching tests truncation of the forward branch.
func TestHistoryBranching(t *testing.T) {
	t.Parallel()

	h := New()
	h.Visit(page("/a"))
	h.Visit(page("/b"))
	h.Visit(page("/c"))

	if p, ok := h.Back(); !ok || p.Address.Selector != "/b" {
		t.Fatalf("unexpected first Back: %v %v", p, ok)
	}
	if p, ok := h.Back(); !ok || p.Address.Selector != "/a" {
		t.Fatalf("unexpected second Back: %v %v", p, ok)
	}
	if !h.CanGoForward() || h.CanGoBack() {
		t.Error("unexpected navigation flags at the start")
	}

	h.Visit(page("/d"))

	if !equalStrings(selectors(h), []string{"/a", "/d"}) {
		t.Errorf("got %v, expected [/a /d]", selectors(h))
	}
	if h.Cursor() != 1 {
		t.Errorf("expected cursor 1, got %d", h.Cursor())
	}
	if h.CanGoForward() {
		t.Error("expected no forward entries")
	}
}

// TestHistoryForward tests moving forward again.
func TestHistoryForward(t *testing.T) {
	t.Parallel()

	h := New()
	h.Visit(page("/a"))
	h.Visit(page("/b"))
	h.Back()

	p, ok := h.Forward()
	if !ok || p.Address.Selector != "/b" {
		t.Fatalf("unexpected Forward: %v %v", p, ok)
	}
	if _, ok := h.Forward(); ok {
		t.Error("expected Forward at the end to fail")
	}
	if h.Current() != p {
		t.Error("Current should be the entry Forward returned")
	}
}

// TestHistoryReplace tests swapping the current entry.
func TestHistoryReplace(t *testing.T) {
	t.Parallel()

	h := New()
	if h.Replace(page("/a")) {
		t.Error("expected Replace on empty history to fail")
	}

	h.Visit(page("/a"))
	fresh := page("/a")
	if !h.Replace(fresh) || h.Current() != fresh {
		t.Error("expected current entry to be replaced")
	}
	if h.Replace(page("/other")) {
		t.Error("expected Replace with another address to fail")
	}
}

// TestHistoryEntriesIsCopy tests that callers cannot mutate the history.
func TestHistoryEntriesIsCopy(t *testing.T) {
	t.Parallel()

	h := New()
	h.Visit(page("/a"))
	entries := h.Entries()
	entries[0] = page("/mutated")

	if h.Current().Address.Selector != "/a" {
		t.Error("history was mutated through Entries")
	}

	h.Clear()
	if h.Len() != 0 || h.Cursor() != -1 {
		t.Error("expected Clear to empty the history")
	}
}

// TestHistoryConcurrentUse tests that concurrent calls are safe.
func TestHistoryConcurrentUse(t *testing.T) {
	t.Parallel()

	h := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h.Visit(page("/" + string(rune('a'+i))))
				h.Back()
				h.Forward()
				_ = h.Entries()
			}
		}(i)
	}
	wg.Wait()

	if h.Cursor() < 0 || h.Cursor() >= h.Len() {
		t.Errorf("cursor %d out of range for %d entries", h.Cursor(), h.Len())
	}
}
