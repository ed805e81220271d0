package model

import (
	"errors"
	"strings"
	"testing"
)

// TestPageComputeHash tests the ComputeHash method.
func TestPageComputeHash(t *testing.T) {
	t.Parallel()

	t.Run("computes SHA256 hash of raw content", func(t *testing.T) {
		t.Parallel()

		page := &Page{
			Raw: []byte("Hello, World!"),
		}
		page.ComputeHash()

		expected := "dffd6021bb2bd5b0af676290809ec3a53191dd81c7f70a4b28688a362182986f"
		if page.Hash != expected {
			t.Errorf("got %q, expected %q", page.Hash, expected)
		}
	})

	t.Run("empty content produces empty hash", func(t *testing.T) {
		t.Parallel()

		page := &Page{Raw: []byte{}}
		page.ComputeHash()

		if page.Hash != "" {
			t.Errorf("expected empty hash, got %q", page.Hash)
		}
	})
}

// TestDecodePage tests menu detection and the text fallback.
func TestDecodePage(t *testing.T) {
	t.Parallel()

	addr := MustParseAddress("gopher://example.org/1/menu")

	t.Run("menu body yields items in order without the dot terminator", func(t *testing.T) {
		t.Parallel()

		raw := []byte("iWelcome\t\terror.host\t1\r\n" +
			"1Docs\t/docs\texample.org\t70\r\n" +
			"0Readme\t/readme.txt\texample.org\t70\r\n" +
			".\r\n")
		page := DecodePage(raw, ItemTypeMenu, addr)

		if page.Type != ItemTypeMenu {
			t.Fatalf("expected menu, got %v", page.Type)
		}
		if len(page.Items) != 3 {
			t.Fatalf("expected 3 items, got %d", len(page.Items))
		}
		wantTypes := []ItemType{ItemTypeInformation, ItemTypeMenu, ItemTypeTextFile}
		for i, want := range wantTypes {
			if page.Items[i].Type != want {
				t.Errorf("item %d: got %v, expected %v", i, page.Items[i].Type, want)
			}
		}
		if page.Size != int64(len(raw)) {
			t.Errorf("expected size %d, got %d", len(raw), page.Size)
		}
		if page.Hash == "" {
			t.Error("expected hash to be set")
		}
		if page.URL != "gopher://example.org/1/menu" {
			t.Errorf("unexpected URL %q", page.URL)
		}
	})

	t.Run("a line without type code becomes an unknown item", func(t *testing.T) {
		t.Parallel()

		page := DecodePage([]byte("1ok\t/a\th\t70\r\n\t/x\th\t70\r\n.\r\n"), ItemTypeMenu, addr)
		if page.Type != ItemTypeMenu || len(page.Items) != 2 {
			t.Fatalf("expected a menu with 2 items, got %v with %d", page.Type, len(page.Items))
		}
		second := page.Items[1]
		if second.Type != ItemTypeUnknown || second.Selector != "/x" || second.Host != "h" {
			t.Errorf("unexpected item %+v", second)
		}
		if len(page.Links()) != 1 {
			t.Errorf("expected only the menu line to be a link, got %d", len(page.Links()))
		}
	})

	t.Run("unknown request type is probed as a menu", func(t *testing.T) {
		t.Parallel()

		page := DecodePage([]byte("1A\t/a\th\t70\n"), ItemTypeUnknown, addr)
		if !page.IsMenu() {
			t.Errorf("expected menu, got %v", page.Type)
		}
	})

	t.Run("plain prose falls back to text", func(t *testing.T) {
		t.Parallel()

		page := DecodePage([]byte("Just some text.\nNo tabs here.\n"), ItemTypeMenu, addr)
		if page.Type != ItemTypeTextFile {
			t.Errorf("expected text, got %v", page.Type)
		}
		if len(page.Items) != 0 {
			t.Errorf("expected no items, got %d", len(page.Items))
		}
		if page.Raw == nil {
			t.Error("expected raw bytes to be kept")
		}
	})

	t.Run("invalid UTF-8 falls back to text", func(t *testing.T) {
		t.Parallel()

		page := DecodePage([]byte{'1', 0xff, '\t', '/', '\n'}, ItemTypeMenu, addr)
		if page.Type != ItemTypeTextFile {
			t.Errorf("expected text, got %v", page.Type)
		}
	})

	t.Run("other request types skip parsing", func(t *testing.T) {
		t.Parallel()

		raw := []byte("1Looks\t/like\ta\t70\n")
		page := DecodePage(raw, ItemTypeTextFile, addr)
		if page.Type != ItemTypeTextFile || len(page.Items) != 0 {
			t.Errorf("expected opaque text page, got %v with %d items", page.Type, len(page.Items))
		}

		page = DecodePage([]byte{0x47, 0x49, 0x46}, ItemTypeGif, addr)
		if page.Type != ItemTypeGif {
			t.Errorf("expected gif, got %v", page.Type)
		}
	})

	t.Run("empty menu body is an empty menu", func(t *testing.T) {
		t.Parallel()

		page := DecodePage(nil, ItemTypeMenu, addr)
		if page.Type != ItemTypeMenu {
			t.Errorf("expected menu, got %v", page.Type)
		}
		if len(page.Items) != 0 {
			t.Errorf("expected no items, got %d", len(page.Items))
		}
	})
}

// TestParseMenu tests the structural checks of the gophermap parser.
func TestParseMenu(t *testing.T) {
	t.Parallel()

	t.Run("info and error lines without tabs are accepted", func(t *testing.T) {
		t.Parallel()

		items, err := ParseMenu([]byte("iHello\n3Oops\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 2 || items[1].Type != ItemTypeErrorCode {
			t.Errorf("unexpected items: %+v", items)
		}
	})

	t.Run("empty lines are skipped", func(t *testing.T) {
		t.Parallel()

		items, err := ParseMenu([]byte("iA\t\t\t0\n\n\r\niB\t\t\t0\n\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 2 {
			t.Errorf("expected 2 items, got %d", len(items))
		}
	})

	t.Run("line without tab reports its position", func(t *testing.T) {
		t.Parallel()

		_, err := ParseMenu([]byte("iok\t\t\t0\nbroken line\n"))
		if !errors.Is(err, ErrMalformedMenu) {
			t.Fatalf("expected ErrMalformedMenu, got %v", err)
		}
		if !strings.Contains(err.Error(), "line 2") {
			t.Errorf("expected line number in %q", err.Error())
		}
	})

	t.Run("invalid encoding", func(t *testing.T) {
		t.Parallel()

		_, err := ParseMenu([]byte{0xc3, 0x28})
		if !errors.Is(err, ErrInvalidEncoding) {
			t.Errorf("expected ErrInvalidEncoding, got %v", err)
		}
	})

	t.Run("a dot in the middle is a regular line", func(t *testing.T) {
		t.Parallel()

		_, err := ParseMenu([]byte(".\niA\t\t\t0\n"))
		if !errors.Is(err, ErrMalformedMenu) {
			t.Errorf("expected ErrMalformedMenu, got %v", err)
		}
	})
}

// TestNewStreamedPage tests pages whose body went to a sink.
func TestNewStreamedPage(t *testing.T) {
	t.Parallel()

	addr := MustParseAddress("gopher://example.org/9/file.bin")
	page := NewStreamedPage(addr, ItemTypeUnknown, 42, "abc")

	if !page.IsStreamed() {
		t.Error("expected streamed page")
	}
	if page.Raw != nil {
		t.Error("expected nil raw bytes")
	}
	if page.Type != ItemTypeBinaryFile {
		t.Errorf("expected binary, got %v", page.Type)
	}
	if page.Size != 42 || page.Hash != "abc" {
		t.Errorf("unexpected size/hash %d/%q", page.Size, page.Hash)
	}
}

// TestPageText tests the Latin-1 fallback.
func TestPageText(t *testing.T) {
	t.Parallel()

	t.Run("UTF-8 is returned as is", func(t *testing.T) {
		t.Parallel()

		page := &Page{Raw: []byte("café")}
		if page.Text() != "café" {
			t.Errorf("got %q", page.Text())
		}
	})

	t.Run("Latin-1 is decoded", func(t *testing.T) {
		t.Parallel()

		page := &Page{Raw: []byte{'c', 'a', 'f', 0xe9}}
		if page.Text() != "café" {
			t.Errorf("got %q", page.Text())
		}
	})
}

// TestPageLinks tests that only navigable items are returned.
func TestPageLinks(t *testing.T) {
	t.Parallel()

	page := DecodePage([]byte("iInfo\t\t\t0\n1Menu\t/m\th\t70\nhWeb\tURL:http://x.org\th\t70\n"),
		ItemTypeMenu, MustParseAddress("h"))
	links := page.Links()
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	if links[0].Display != "Menu" || links[1].Display != "Web" {
		t.Errorf("unexpected links: %+v", links)
	}
}
