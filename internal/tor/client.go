package tor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds the SOCKS5 handshake done by CheckConnection.
// The check only talks to the local proxy, never across the Tor network,
// so a short bound is enough to tell a dead proxy from a slow one.
const checkProxyTimeout = 2 * time.Second

// Client dials through a SOCKS5 proxy, typically a Tor daemon.
// It satisfies the dialer interface of the Gopher transport, so a gopher.Client
// built with WithDialer(torClient) sends every request through the proxy.
//
// Design decision: Client only speaks SOCKS5. Starting and stopping a Tor
// daemon is the job of EmbeddedTor; a Client works the same against the
// embedded daemon, a system Tor or any other SOCKS5 proxy such as an SSH
// tunnel. The proxy resolves host names, which is what makes .onion hosts
// reachable at all.
//
// A Client is safe for concurrent use. The underlying dialer holds no
// per-connection state.
type Client struct {
	// proxyAddress is the proxy address in "host:port" format, without credentials.
	proxyAddress string

	// auth holds proxy credentials, nil when the proxy needs none.
	auth *proxy.Auth

	// dialer is the SOCKS5 dialer, created once and shared by every dial.
	dialer proxy.Dialer

	// timeout bounds a dial through the proxy when the context has no deadline.
	timeout time.Duration
}

// NewClient creates a client for the proxy at proxyAddress.
//
// proxyAddress is "host:port" or "user:password@host:port" (for example
// "127.0.0.1:9050" or "alice:s3cret@127.0.0.1:1080"). A malformed address
// returns ErrInvalidProxyAddress. The timeout bounds each dial whose context
// carries no deadline of its own; zero means no bound.
//
// The proxy is not contacted here; call CheckConnection to verify it.
//
// Design decision: The constructor does no network I/O because:
// 1. The configuration can be validated before Tor has finished starting
// 2. A proxy that is down only fails the fetches routed through it
// 3. Tests can create clients for proxies that do not exist
func NewClient(proxyAddress string, timeout time.Duration) (*Client, error) {
	hostPort, auth, err := splitProxyAddress(proxyAddress)
	if err != nil {
		return nil, err
	}

	dialer, err := proxy.SOCKS5("tcp", hostPort, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	return &Client{
		proxyAddress: hostPort,
		auth:         auth,
		dialer:       dialer,
		timeout:      timeout,
	}, nil
}

// splitProxyAddress separates optional credentials from the host:port pair.
// The last '@' splits the two so a password may itself contain '@'.
func splitProxyAddress(address string) (string, *proxy.Auth, error) {
	var auth *proxy.Auth
	if at := strings.LastIndexByte(address, '@'); at >= 0 {
		user, password, _ := strings.Cut(address[:at], ":")
		if user == "" {
			return "", nil, ErrInvalidProxyAddress
		}
		auth = &proxy.Auth{User: user, Password: password}
		address = address[at+1:]
	}
	if !isValidProxyAddress(address) {
		return "", nil, ErrInvalidProxyAddress
	}
	return address, auth, nil
}

// isValidProxyAddress checks for a non-empty host and a port in 1..65535.
// Bracketed IPv6 literals ("[::1]:9050") are accepted.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// SOCKS5 protocol constants (RFC 1928, RFC 1929).
const (
	socks5Version       = 0x05
	socks5AuthNone      = 0x00
	socks5AuthPassword  = 0x02
	socks5CmdConnect    = 0x01
	socks5AddrTypeDomID = 0x03

	// socks5ProbePort is the port asked for in the CONNECT probe.
	socks5ProbePort = 70
)

// socks5ProbeHost is a syntactically valid onion host that does not exist.
// The proxy only has to answer the CONNECT, not succeed.
var socks5ProbeHost = strings.Repeat("a", OnionV3Length) + OnionSuffix

// CheckConnection verifies that the proxy accepts connections and speaks SOCKS5.
// It returns a ProxyStatus describing the result; it never returns an error.
//
// The check runs a real handshake:
// 1. Method negotiation, offering username/password only when configured
// 2. The RFC 1929 sub-negotiation when credentials are set
// 3. A CONNECT to a non-existent onion host
//
// Any well-formed CONNECT reply, success or failure, counts as working. Tor
// answers the probe with "host unreachable", a plain SOCKS5 proxy without
// onion support usually with "general failure"; both prove the proxy parsed
// the request. A port that accepts TCP but answers with anything else, such
// as an HTTP proxy, is reported as ProxyStatusWrongType.
func (c *Client) CheckConnection(ctx context.Context) ProxyStatus {
	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	// Step 1: method negotiation. Offer password auth only when we have credentials.
	// Client sends: version + number of methods + methods.
	method := byte(socks5AuthNone)
	if c.auth != nil {
		method = socks5AuthPassword
	}
	if _, err := conn.Write([]byte{socks5Version, 0x01, method}); err != nil {
		return ProxyStatusCannotConnect
	}

	// Server answers: version + selected method. 0xFF means nothing acceptable.
	authResp := make([]byte, 2)
	if _, err := io.ReadFull(conn, authResp); err != nil {
		return readFailure(err)
	}
	if authResp[0] != socks5Version || authResp[1] != method {
		return ProxyStatusWrongType
	}

	// Step 2: credentials.
	if c.auth != nil {
		if status := c.authenticate(conn); status != ProxyStatusOK {
			return status
		}
	}

	// Step 3: CONNECT by domain name so the proxy has to resolve it.
	connectReq := []byte{
		socks5Version,
		socks5CmdConnect,
		0x00, // reserved
		socks5AddrTypeDomID,
		byte(len(socks5ProbeHost)),
	}
	connectReq = append(connectReq, socks5ProbeHost...)
	connectReq = append(connectReq, byte(socks5ProbePort>>8), byte(socks5ProbePort&0xFF))

	if _, err := conn.Write(connectReq); err != nil {
		return ProxyStatusCannotConnect
	}

	// version + reply + reserved + address type
	connectResp := make([]byte, 4)
	if _, err := io.ReadFull(conn, connectResp); err != nil {
		return readFailure(err)
	}
	if connectResp[0] != socks5Version {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

// authenticate runs the RFC 1929 username/password sub-negotiation.
// A non-zero status byte means the proxy rejected the credentials.
func (c *Client) authenticate(conn net.Conn) ProxyStatus {
	req := []byte{0x01, byte(len(c.auth.User))}
	req = append(req, c.auth.User...)
	req = append(req, byte(len(c.auth.Password)))
	req = append(req, c.auth.Password...)
	if _, err := conn.Write(req); err != nil {
		return ProxyStatusCannotConnect
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return readFailure(err)
	}
	if resp[1] != 0x00 {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

// readFailure maps a handshake read error to a status. Timeouts stay
// timeouts; a short or garbled reply means the peer is not a SOCKS5 proxy.
func readFailure(err error) ProxyStatus {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ProxyStatusTimeout
	}
	return ProxyStatusWrongType
}

// DialContext connects to address through the proxy.
// The proxy resolves host names, so .onion hosts work.
//
// When ctx has no deadline the client timeout applies. Cancelling ctx
// abandons the dial and returns ctx.Err().
//
// Design decision: The SOCKS5 dialer from x/net implements ContextDialer and
// is used directly. The goroutine fallback only covers dialers that do not,
// and closes a connection that completes after the caller gave up so it does
// not leak.
func (c *Client) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if cd, ok := c.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}

	type dialResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)

	go func() {
		conn, err := c.dialer.Dial(network, address)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case result := <-resultCh:
		return result.conn, result.err
	case <-ctx.Done():
		go func() {
			if r := <-resultCh; r.conn != nil {
				_ = r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// ProxyAddress returns the proxy host:port, without credentials.
// It is safe to log.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// HasAuth reports whether the client sends proxy credentials.
func (c *Client) HasAuth() bool {
	return c.auth != nil
}
