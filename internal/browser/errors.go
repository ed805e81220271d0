package browser

import "errors"

// Navigation errors.
var (
	// ErrExternalLink is returned when following an item that leaves Gopher
	// (a "URL:" link or a telnet/tn3270/CCSO session). The error text carries the target.
	ErrExternalLink = errors.New("item links outside gopher")

	// ErrNotNavigable is returned when following an item with no target, such
	// as an informational line.
	ErrNotNavigable = errors.New("item is not navigable")

	// ErrQueryRequired is returned when following a search item without terms.
	ErrQueryRequired = errors.New("search item requires a query")

	// ErrNoCurrentPage is returned by Reload before any page was loaded.
	ErrNoCurrentPage = errors.New("no current page")
)
