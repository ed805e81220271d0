package browser

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/burrow/internal/gopher"
	"github.com/nao1215/burrow/internal/model"
)

// menuServer serves a small menu for every selector except "/slow", which
// blocks until the test ends.
func menuServer(t *testing.T) (host string, port int, hits *atomic.Int32) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	release := make(chan struct{})
	t.Cleanup(func() {
		_ = ln.Close()
		close(release)
	})

	hits = &atomic.Int32{}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				line, err := bufio.NewReader(conn).ReadString('\n')
				if err != nil {
					return
				}
				hits.Add(1)
				selector := strings.TrimRight(line, "\r\n")
				if selector == "/slow" {
					<-release
					return
				}
				_, _ = io.WriteString(conn, "iYou asked for "+selector+"\t\t\t0\r\n"+
					"1Next\t/next\texample.org\t70\r\n")
			}()
		}
	}()

	return "127.0.0.1", ln.Addr().(*net.TCPAddr).Port, hits
}

type recordingListener struct {
	mu       sync.Mutex
	loaded   []*model.Page
	failed   []gopher.ErrorKind
	progress int
}

func (l *recordingListener) OnPageLoaded(page *model.Page) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loaded = append(l.loaded, page)
}

func (l *recordingListener) OnPageLoadFailed(kind gopher.ErrorKind, _ model.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failed = append(l.failed, kind)
}

func (l *recordingListener) OnProgress(model.Address, int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.progress++
}

// waitFor runs the event loop until a terminal event of f has been handled.
func waitFor(t *testing.T, s *Session, f *gopher.Fetch, l Listener) Event {
	t.Helper()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-s.Events():
			s.Handle(ev, l)
			if ev.FetchID == f.ID && ev.Kind != EventProgress {
				return ev
			}
		case <-timeout:
			t.Fatal("timed out waiting for fetch")
			return Event{}
		}
	}
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s := New(gopher.NewClient(gopher.WithTimeout(5 * time.Second)))
	t.Cleanup(s.Close)
	return s
}

// TestSessionOpen tests that a loaded page reaches history and the listener.
func TestSessionOpen(t *testing.T) {
	t.Parallel()

	host, port, _ := menuServer(t)
	s := newTestSession(t)
	l := &recordingListener{}

	f := s.Open(context.Background(), model.NewAddress(host, port, "/start"), model.ItemTypeMenu, "")
	if s.Active() != f {
		t.Error("expected the fetch to be active")
	}
	ev := waitFor(t, s, f, l)

	if ev.Kind != EventLoaded {
		t.Fatalf("expected loaded event, got %v (%v)", ev.Kind, ev.Err)
	}
	if s.History().Len() != 1 || s.History().Current() != ev.Page {
		t.Error("expected the page to be the current history entry")
	}
	if len(l.loaded) != 1 || l.loaded[0] != ev.Page {
		t.Error("expected the listener to receive the page")
	}
	if l.progress == 0 {
		t.Error("expected at least one progress call")
	}
	if s.Active() != nil {
		t.Error("expected no active fetch after completion")
	}
}

// TestSessionSupersede tests that a new fetch cancels the active one and that
// the old fetch's events are dropped.
func TestSessionSupersede(t *testing.T) {
	t.Parallel()

	host, port, _ := menuServer(t)
	s := newTestSession(t)
	l := &recordingListener{}

	slow := s.Open(context.Background(), model.NewAddress(host, port, "/slow"), model.ItemTypeMenu, "")
	fast := s.Open(context.Background(), model.NewAddress(host, port, "/fast"), model.ItemTypeMenu, "")

	if !slow.Cancelled() {
		t.Error("expected the first fetch to be cancelled")
	}

	// Both terminal events must be seen; only the second one applies.
	var applied, dropped int
	timeout := time.After(5 * time.Second)
	for applied+dropped < 2 {
		select {
		case ev := <-s.Events():
			if ev.Kind == EventProgress {
				s.Handle(ev, l)
				continue
			}
			if s.Handle(ev, l) {
				applied++
				if ev.FetchID != fast.ID {
					t.Errorf("applied event of the wrong fetch")
				}
			} else {
				dropped++
				if ev.FetchID != slow.ID || ev.ErrorKind() != gopher.KindUserCancelled {
					t.Errorf("unexpected dropped event %+v", ev)
				}
			}
		case <-timeout:
			t.Fatal("timed out waiting for events")
		}
	}

	if len(l.failed) != 0 {
		t.Errorf("listener saw a superseded failure: %v", l.failed)
	}
	entries := s.History().Entries()
	if len(entries) != 1 || entries[0].Address.Selector != "/fast" {
		t.Errorf("unexpected history %+v", entries)
	}
}

// TestSessionCancel tests that cancelling the active fetch reports a failure.
func TestSessionCancel(t *testing.T) {
	t.Parallel()

	host, port, _ := menuServer(t)
	s := newTestSession(t)
	l := &recordingListener{}

	f := s.Open(context.Background(), model.NewAddress(host, port, "/slow"), model.ItemTypeMenu, "")
	s.Cancel()
	ev := waitFor(t, s, f, l)

	if ev.Kind != EventFailed {
		t.Fatalf("expected failed event, got %v", ev.Kind)
	}
	if len(l.failed) != 1 || l.failed[0] != gopher.KindUserCancelled {
		t.Errorf("unexpected failures %v", l.failed)
	}
	if s.History().Len() != 0 {
		t.Error("expected history to stay empty")
	}
}

// TestSessionFollow tests item classification before fetching.
func TestSessionFollow(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	ctx := context.Background()

	t.Run("external link", func(t *testing.T) {
		t.Parallel()

		_, err := s.Follow(ctx, model.DecodeItem("hWeb\tURL:https://example.com\th\t70"))
		if !errors.Is(err, ErrExternalLink) {
			t.Errorf("expected ErrExternalLink, got %v", err)
		}
		if err != nil && !strings.Contains(err.Error(), "https://example.com") {
			t.Errorf("expected target in %q", err.Error())
		}
	})

	t.Run("telnet session", func(t *testing.T) {
		t.Parallel()

		_, err := s.Follow(ctx, model.DecodeItem("8BBS\t\tbbs.example\t23"))
		if !errors.Is(err, ErrExternalLink) {
			t.Errorf("expected ErrExternalLink, got %v", err)
		}
	})

	t.Run("information line", func(t *testing.T) {
		t.Parallel()

		_, err := s.Follow(ctx, model.DecodeItem("iJust text\t\t\t0"))
		if !errors.Is(err, ErrNotNavigable) {
			t.Errorf("expected ErrNotNavigable, got %v", err)
		}
	})

	t.Run("search without terms", func(t *testing.T) {
		t.Parallel()

		item := model.DecodeItem("7Search\t/s\th\t70")
		if _, err := s.Follow(ctx, item); !errors.Is(err, ErrQueryRequired) {
			t.Errorf("expected ErrQueryRequired, got %v", err)
		}
		if _, err := s.Search(ctx, item, ""); !errors.Is(err, ErrQueryRequired) {
			t.Errorf("expected ErrQueryRequired, got %v", err)
		}
		if _, err := s.Search(ctx, model.DecodeItem("1Menu\t/m\th\t70"), "q"); !errors.Is(err, ErrNotNavigable) {
			t.Errorf("expected ErrNotNavigable, got %v", err)
		}
	})
}

// TestSessionNavigation tests follow, back, forward and reload.
func TestSessionNavigation(t *testing.T) {
	t.Parallel()

	host, port, hits := menuServer(t)
	s := newTestSession(t)
	l := &recordingListener{}
	ctx := context.Background()

	if _, err := s.Reload(ctx); !errors.Is(err, ErrNoCurrentPage) {
		t.Errorf("expected ErrNoCurrentPage, got %v", err)
	}

	f := s.Open(ctx, model.NewAddress(host, port, "/a"), model.ItemTypeMenu, "")
	waitFor(t, s, f, l)

	item := model.DecodeItem("1B\t/b\t" + host + "\t" + strconv.Itoa(port))
	f, err := s.Follow(ctx, item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, s, f, l)

	if s.History().Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", s.History().Len())
	}

	before := hits.Load()
	page, ok := s.Back()
	if !ok || page.Address.Selector != "/a" {
		t.Fatalf("unexpected Back result %v %v", page, ok)
	}
	if page, ok := s.Forward(); !ok || page.Address.Selector != "/b" {
		t.Fatalf("unexpected Forward result %v %v", page, ok)
	}
	if hits.Load() != before {
		t.Error("back/forward should not refetch")
	}

	f, err = s.Reload(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := waitFor(t, s, f, l)
	if ev.Kind != EventLoaded {
		t.Fatalf("expected reload to succeed, got %v", ev.Err)
	}
	if s.History().Len() != 2 || s.History().Current() != ev.Page {
		t.Error("expected reload to replace the current entry")
	}
}

// TestSessionOpenURL tests URL parsing errors.
func TestSessionOpenURL(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	if _, err := s.OpenURL(context.Background(), "http://example.org", ""); !errors.Is(err, model.ErrInvalidURL) {
		t.Errorf("expected ErrInvalidURL, got %v", err)
	}
}

// TestEventKindString tests the String method of EventKind.
func TestEventKindString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		kind     EventKind
		expected string
	}{
		{EventProgress, "progress"},
		{EventLoaded, "loaded"},
		{EventFailed, "failed"},
		{EventKind(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if tc.kind.String() != tc.expected {
				t.Errorf("got %q, expected %q", tc.kind.String(), tc.expected)
			}
		})
	}
}
