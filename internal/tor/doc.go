// Package tor lets the Gopher transport reach servers through a SOCKS5 proxy.
//
// Client wraps a golang.org/x/net/proxy SOCKS5 dialer and can be passed to
// gopher.WithDialer. The proxy is either an external daemon (--proxy, usually
// Tor on 127.0.0.1:9050) or one started in-process with EmbeddedTor (--tor),
// which uses github.com/nao1215/tornago.
//
// Onion hosts are never resolved locally: HostPolicy refuses them unless the
// transport is proxied and checks the v3 address checksum.
package tor
