// Package model defines the Gopher data types shared by the rest of burrow.
//
// This package contains the following main types:
//   - ItemType: the closed set of gophermap type codes
//   - Address: a host, port and selector, parsed from and formatted to gopher:// URLs
//   - Item: one decoded gophermap line
//   - Page: a decoded response, either a menu of Items or opaque content
//
// Models live in their own package so that the transport, the history and the
// report writers can share them without import cycles. Every type here is a
// value that is not modified after construction, so pages can be handed between
// goroutines freely.
package model
