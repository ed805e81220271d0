package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Page is a decoded Gopher response.
//
// A menu page carries its decoded Items; any other page carries the response
// as opaque bytes. Type is never ItemTypeUnknown: an ambiguous response
// resolves to a menu or to plain text. Pages are not modified after decoding.
type Page struct {
	// Address is the address the page was fetched from.
	Address Address `json:"address"`

	// URL is Address rendered as a gopher:// URL.
	URL string `json:"url"`

	// Type is the resolved content type.
	Type ItemType `json:"type"`

	// Items is the ordered menu content. Empty unless Type is ItemTypeMenu.
	Items []Item `json:"items,omitempty"`

	// Raw is the response body. Nil when the body was streamed to a sink.
	Raw []byte `json:"-"`

	// Size is the number of bytes received.
	Size int64 `json:"size"`

	// Hash is the hex SHA-256 of the body, empty for an empty body.
	Hash string `json:"hash,omitempty"`

	// Query is the search terms sent with the selector, if any.
	Query string `json:"query,omitempty"`

	// Streamed is set when the body was written to a caller-supplied sink.
	Streamed bool `json:"streamed,omitempty"`

	// FetchedAt is when the last byte arrived.
	FetchedAt time.Time `json:"fetched_at"`
}

// DecodePage builds a Page from a complete response body.
//
// When requested is Menu or Unknown the body is parsed as a gophermap. A body
// that is not a well-formed gophermap is not an error: the page degrades to
// ItemTypeTextFile with no items. Any other requested type skips parsing and
// keeps the body opaque under that type.
func DecodePage(raw []byte, requested ItemType, address Address) *Page {
	page := &Page{
		Address: address,
		URL:     address.URL(),
		Raw:     raw,
		Size:    int64(len(raw)),
	}
	page.ComputeHash()

	if requested != ItemTypeMenu && requested != ItemTypeUnknown {
		page.Type = requested
		return page
	}

	items, err := ParseMenu(raw)
	if err != nil {
		page.Type = ItemTypeTextFile
		return page
	}
	page.Type = ItemTypeMenu
	page.Items = items
	return page
}

// NewStreamedPage describes a response whose body went to a caller-supplied
// sink. It has no Raw bytes and no items.
func NewStreamedPage(address Address, typ ItemType, size int64, hash string) *Page {
	if typ == ItemTypeUnknown {
		typ = ItemTypeBinaryFile
	}
	return &Page{
		Address:  address,
		URL:      address.URL(),
		Type:     typ,
		Size:     size,
		Hash:     hash,
		Streamed: true,
	}
}

// ParseMenu decodes a gophermap body into items.
//
// Lines are split on LF with an optional CR. Empty lines and a trailing lone
// "." terminator are dropped. Every other line must look like a menu line:
// it has a TAB, or it is an informational or error line (some servers omit
// the tabs on those).
func ParseMenu(raw []byte) ([]Item, error) {
	if !utf8.Valid(raw) {
		return nil, ErrInvalidEncoding
	}

	lines := strings.Split(string(raw), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	end := len(lines)
	for end > 0 && lines[end-1] == "" {
		end--
	}
	if end > 0 && lines[end-1] == "." {
		end--
	}

	items := make([]Item, 0, end)
	for n, line := range lines[:end] {
		if line == "" {
			continue
		}
		if !isMenuLine(line) {
			return nil, fmt.Errorf("%w: line %d", ErrMalformedMenu, n+1)
		}
		items = append(items, DecodeItem(line))
	}
	return items, nil
}

// isMenuLine reports whether line is structurally a gophermap entry.
func isMenuLine(line string) bool {
	if strings.Contains(line, "\t") {
		return true
	}
	return line[0] == 'i' || line[0] == '3'
}

// ComputeHash calculates and sets the SHA-256 hash of the page's raw content.
func (p *Page) ComputeHash() {
	if len(p.Raw) == 0 {
		p.Hash = ""
		return
	}

	hash := sha256.Sum256(p.Raw)
	p.Hash = hex.EncodeToString(hash[:])
}

// IsMenu returns true for menu pages.
func (p *Page) IsMenu() bool {
	return p.Type == ItemTypeMenu
}

// IsStreamed returns true when the body was written to a sink instead of Raw.
func (p *Page) IsStreamed() bool {
	return p.Streamed
}

// Text returns the body as UTF-8. Bodies that are not valid UTF-8 are decoded
// as ISO-8859-1, which many older servers still use.
func (p *Page) Text() string {
	if utf8.Valid(p.Raw) {
		return string(p.Raw)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(p.Raw)
	if err != nil {
		return string(p.Raw)
	}
	return string(decoded)
}

// Links returns the menu items that have a navigable target, in menu order.
func (p *Page) Links() []Item {
	links := make([]Item, 0, len(p.Items))
	for _, item := range p.Items {
		if item.IsNavigable() {
			links = append(links, item)
		}
	}
	return links
}
