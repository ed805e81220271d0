// Package config holds burrow's runtime settings and its YAML configuration
// file.
//
// Config is populated from CLI flags and validated once before any network
// activity. The optional .burrow file adds per-host overrides (timeouts and
// the SOCKS5 proxy to reach a host through), named bookmarks usable as
// "@name" on the command line, and a home URL for the browse command:
//
//	home: gopher://gopher.floodgap.com/
//	defaults:
//	  timeout: 30s
//	hosts:
//	  example.onion:
//	    proxy: 127.0.0.1:9050
//	    readTimeout: 2m
//	bookmarks:
//	  floodgap: gopher://gopher.floodgap.com/1/world
package config
