package model

import (
	"net"
	"strconv"
	"strings"
	"unicode"
)

const (
	// DefaultPort is the registered Gopher port.
	DefaultPort = 70

	// schemePrefix is the URL scheme accepted by ParseAddress.
	schemePrefix = "gopher://"
)

// Address locates a Gopher resource: a host, a port and the selector string
// sent to the server. TypePrefix, when set, is the item type code carried by
// the URL path ("gopher://host/1/dir" has TypePrefix '1').
//
// Address is a value type. ParseAddress and NewAddress always produce the
// canonical form, in which a non-empty selector begins with "/".
type Address struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Selector   string `json:"selector"`
	TypePrefix byte   `json:"-"`
}

// NewAddress builds a canonical Address. A zero port means DefaultPort.
func NewAddress(host string, port int, selector string) Address {
	if port == 0 {
		port = DefaultPort
	}
	return Address{
		Host:     host,
		Port:     port,
		Selector: canonicalSelector(selector),
	}
}

// ParseAddress parses "gopher://host[:port][/[type]selector]" or, without a
// scheme, "host[:port][/selector]".
//
// The type prefix is only recognized when a scheme is present, the first path
// character is a known type code and it is followed by "/" or ends the path.
// Selectors are kept verbatim, whitespace included; percent escapes are not
// decoded. Leading whitespace and whitespace around the host segment are
// ignored.
func ParseAddress(raw string) (Address, error) {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)
	hasScheme := false
	switch {
	case len(s) >= len(schemePrefix) && strings.EqualFold(s[:len(schemePrefix)], schemePrefix):
		s = s[len(schemePrefix):]
		hasScheme = true
	case hasForeignScheme(s):
		return Address{}, &addressError{raw: raw, err: ErrUnsupportedScheme}
	}

	hostPart, rest := s, ""
	if i := strings.IndexByte(s, '/'); i >= 0 {
		hostPart, rest = s[:i], s[i:]
	}

	host, port, err := splitHostPort(strings.TrimRightFunc(hostPart, unicode.IsSpace))
	if err != nil {
		return Address{}, &addressError{raw: raw, err: err}
	}

	var prefix byte
	if hasScheme && len(rest) >= 2 && IsItemTypeCode(rest[1]) && (len(rest) == 2 || rest[2] == '/') {
		prefix = rest[1]
		rest = rest[2:]
	}

	return Address{
		Host:       host,
		Port:       port,
		Selector:   canonicalSelector(rest),
		TypePrefix: prefix,
	}, nil
}

// MustParseAddress is like ParseAddress but panics on error.
// Use only for known-valid addresses in tests or initialization.
func MustParseAddress(raw string) Address {
	a, err := ParseAddress(raw)
	if err != nil {
		panic(err)
	}
	return a
}

// hasForeignScheme reports whether s starts with "<letters>://".
func hasForeignScheme(s string) bool {
	i := strings.Index(s, "://")
	if i <= 0 {
		return false
	}
	for _, c := range s[:i] {
		isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if !isLetter && c != '+' && c != '-' && c != '.' {
			return false
		}
	}
	return true
}

// splitHostPort splits the host segment on the first ':' outside an IPv6
// bracket pair.
func splitHostPort(hostPart string) (string, int, error) {
	host, portStr, hasPort := hostPart, "", false

	if strings.HasPrefix(hostPart, "[") {
		end := strings.IndexByte(hostPart, ']')
		if end < 0 {
			return "", 0, ErrEmptyHost
		}
		host = hostPart[1:end]
		after := hostPart[end+1:]
		switch {
		case after == "":
		case after[0] == ':':
			portStr, hasPort = after[1:], true
		default:
			return "", 0, ErrInvalidPort
		}
	} else if i := strings.IndexByte(hostPart, ':'); i >= 0 {
		host, portStr, hasPort = hostPart[:i], hostPart[i+1:], true
	}

	if host == "" {
		return "", 0, ErrEmptyHost
	}
	if !hasPort {
		return host, DefaultPort, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, ErrInvalidPort
	}
	return host, port, nil
}

// canonicalSelector maps "" and "/" to "" and guarantees a leading "/" otherwise.
func canonicalSelector(s string) string {
	if s == "" || s == "/" {
		return ""
	}
	if s[0] != '/' {
		return "/" + s
	}
	return s
}

// Format serializes the address without a scheme: host, ":port" when the
// port is not 70, then the selector segment. With includeTypePrefix and a
// prefix set, the prefix becomes the first character of the selector segment.
func (a Address) Format(includeTypePrefix bool) string {
	var sb strings.Builder
	if strings.Contains(a.Host, ":") {
		sb.WriteString("[" + a.Host + "]")
	} else {
		sb.WriteString(a.Host)
	}
	if a.Port != DefaultPort {
		sb.WriteString(":" + strconv.Itoa(a.Port))
	}

	hasPrefix := includeTypePrefix && a.TypePrefix != 0
	if a.Selector == "" && !hasPrefix {
		return sb.String()
	}
	sb.WriteByte('/')
	if !hasPrefix {
		sb.WriteString(strings.TrimPrefix(a.Selector, "/"))
		return sb.String()
	}

	// The prefix sits between two slashes: "/1/dir".
	sb.WriteByte(a.TypePrefix)
	if a.Selector != "" && a.Selector[0] != '/' {
		sb.WriteByte('/')
	}
	sb.WriteString(a.Selector)
	return sb.String()
}

// URL returns the address as a gopher:// URL including the type prefix.
func (a Address) URL() string {
	return schemePrefix + a.Format(true)
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return a.URL()
}

// HostPort returns the "host:port" pair to dial.
func (a Address) HostPort() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// ItemType returns the type named by the prefix, or Unknown when none is set.
func (a Address) ItemType() ItemType {
	if a.TypePrefix == 0 {
		return ItemTypeUnknown
	}
	return ItemTypeFromCode(a.TypePrefix)
}

// WithTypePrefix returns a copy of the address carrying the given type code.
func (a Address) WithTypePrefix(code byte) Address {
	a.TypePrefix = code
	return a
}

// Equal reports whether two addresses name the same resource. Host names
// compare case-insensitively; the type prefix is ignored.
func (a Address) Equal(other Address) bool {
	return strings.EqualFold(a.Host, other.Host) &&
		a.Port == other.Port &&
		a.Selector == other.Selector
}

// IsZero returns true if this is a zero value Address.
func (a Address) IsZero() bool {
	return a.Host == ""
}
