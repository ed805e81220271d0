// Package main provides the entry point for the burrow CLI.
//
// burrow is a Gopher client. It fetches menus, text and binary items from
// Gopher servers, directly or through Tor, and browses gopherspace from the
// terminal.
//
// Usage:
//
//	burrow fetch gopher://gopher.floodgap.com/
//	burrow browse @home
//
// See --help for all available options.
package main

// main is the entry point for burrow.
func main() {
	Execute()
}
