package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// gopherHole is an in-process Gopher server serving a fixed set of selectors.
// Unknown selectors get an error menu line.
type gopherHole struct {
	host string
	port int

	mu       sync.Mutex
	routes   map[string]string
	requests []string
}

func startGopherHole(t *testing.T, routes map[string]string) *gopherHole {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	hole := &gopherHole{
		host:   "127.0.0.1",
		port:   ln.Addr().(*net.TCPAddr).Port,
		routes: routes,
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go hole.serve(conn)
		}
	}()

	return hole
}

func (h *gopherHole) serve(conn net.Conn) {
	defer conn.Close()

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return
	}
	request := strings.TrimRight(line, "\r\n")

	h.mu.Lock()
	h.requests = append(h.requests, request)
	body, ok := h.routes[request]
	h.mu.Unlock()

	if !ok {
		body = "3'" + request + "' does not exist\t\terror.host\t1\r\n.\r\n"
	}
	_, _ = io.WriteString(conn, body)
}

// url returns the gopher URL of selector with the given type code.
func (h *gopherHole) url(code byte, selector string) string {
	return fmt.Sprintf("gopher://%s:%d/%c%s", h.host, h.port, code, selector)
}

// menuLine formats one menu entry pointing back at this server.
func (h *gopherHole) menuLine(code byte, display, selector string) string {
	return fmt.Sprintf("%c%s\t%s\t%s\t%d\r\n", code, display, selector, h.host, h.port)
}

func (h *gopherHole) requestLog() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.requests...)
}

// closedAddress returns a host:port nothing listens on.
func closedAddress(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

// writeConfig writes a configuration file into a temporary directory.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".burrow")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// runBurrow executes the root command with args and returns stdout and stderr.
// A private config is passed unless args already name one, so the test never
// picks up a .burrow file from the machine running it.
func runBurrow(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	hasConfig := false
	for _, a := range args {
		if a == "-c" || a == "--config" || strings.HasPrefix(a, "--config=") {
			hasConfig = true
		}
	}
	if !hasConfig {
		args = append(args, "-c", writeConfig(t, "{}\n"))
	}

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
