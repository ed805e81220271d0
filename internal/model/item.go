package model

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Item is one decoded gophermap line.
// Items are immutable values owned by the Page they were decoded from.
type Item struct {
	// Type is the classified item type.
	Type ItemType `json:"type"`

	// Code is the raw type byte from the line. Zero when the line is empty,
	// starts with TAB or starts with a multi-byte character.
	Code byte `json:"-"`

	// Display is the user-visible text.
	Display string `json:"display"`

	// Selector is the string to send to Host to retrieve the item, verbatim.
	Selector string `json:"selector,omitempty"`

	// Host and Port locate the server holding the item.
	Host string `json:"host,omitempty"`
	Port int    `json:"port"`

	// GopherPlus is set when the line carries the Gopher+ "+" fourth tab field.
	GopherPlus bool `json:"gopher_plus,omitempty"`
}

const (
	// urlSelectorPrefix marks a selector that links outside Gopher ("URL:http://...").
	urlSelectorPrefix = "URL:"
)

// DecodeItem decodes a single gophermap line. It never fails: an absent or
// unrecognized type code yields ItemTypeUnknown, missing fields stay empty
// and a non-numeric port falls back to DefaultPort.
func DecodeItem(line string) Item {
	line = strings.TrimRight(line, "\r\n")
	item := Item{Port: DefaultPort}
	if line == "" {
		return item
	}

	// A line starting with TAB has no type code. A multi-byte first
	// character is never a known code and is skipped like one.
	rest := line
	if line[0] != '\t' {
		_, size := utf8.DecodeRuneInString(line)
		if size == 1 {
			item.Code = line[0]
		}
		rest = line[size:]
	}
	item.Type = ItemTypeFromCode(item.Code)

	fields := strings.Split(rest, "\t")
	item.Display = fields[0]
	if len(fields) > 1 {
		item.Selector = fields[1]
	}
	if len(fields) > 2 {
		item.Host = fields[2]
	}
	if len(fields) > 3 {
		if port, err := strconv.Atoi(strings.TrimSpace(fields[3])); err == nil && port > 0 && port <= 65535 {
			item.Port = port
		}
	}
	if len(fields) > 4 {
		item.GopherPlus = strings.TrimSpace(fields[4]) == "+"
	}
	return item
}

// externalTarget returns the link target of a "URL:" selector.
func (i Item) externalTarget() (string, bool) {
	switch {
	case strings.HasPrefix(i.Selector, urlSelectorPrefix):
		return i.Selector[len(urlSelectorPrefix):], true
	case strings.HasPrefix(i.Selector, "/"+urlSelectorPrefix):
		return i.Selector[len(urlSelectorPrefix)+1:], true
	default:
		return "", false
	}
}

// ResolvedURL returns the navigable target of the item.
// Informational and unknown lines have none and return "". "URL:" selectors
// return the embedded link verbatim. Everything else becomes
// gopher://host[:port]/selector.
func (i Item) ResolvedURL() string {
	if i.Type == ItemTypeUnknown || i.Type == ItemTypeInformation {
		return ""
	}
	if target, ok := i.externalTarget(); ok {
		return target
	}

	var sb strings.Builder
	sb.WriteString(schemePrefix)
	sb.WriteString(i.Host)
	if i.Port != DefaultPort {
		sb.WriteString(":" + strconv.Itoa(i.Port))
	}
	if !strings.HasPrefix(i.Selector, "/") {
		sb.WriteByte('/')
	}
	sb.WriteString(i.Selector)
	return sb.String()
}

// IsBinary reports whether the item should be downloaded rather than shown inline.
func (i Item) IsBinary() bool {
	return i.Type.IsBinary()
}

// IsNavigable reports whether the item points at something.
func (i Item) IsNavigable() bool {
	return i.ResolvedURL() != ""
}

// IsExternal reports whether following the item leaves the Gopher protocol:
// "URL:" links and telnet/tn3270/CCSO sessions, which are classified and handed
// off but never fetched.
func (i Item) IsExternal() bool {
	if _, ok := i.externalTarget(); ok {
		return true
	}
	switch i.Type {
	case ItemTypeTelnet, ItemTypeTelnet3270, ItemTypeCcsoNameserver:
		return true
	default:
		return false
	}
}

// Address returns the Gopher address of the item. The selector is kept
// verbatim so the exact string from the menu goes on the wire.
func (i Item) Address() Address {
	a := Address{
		Host:     i.Host,
		Port:     i.Port,
		Selector: i.Selector,
	}
	if IsItemTypeCode(i.Code) {
		a.TypePrefix = i.Code
	}
	return a
}
