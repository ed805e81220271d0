package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/burrow/internal/config"
	"github.com/nao1215/burrow/internal/database"
	"github.com/nao1215/burrow/internal/gopher"
	"github.com/nao1215/burrow/internal/log"
	"github.com/nao1215/burrow/internal/model"
	"github.com/nao1215/burrow/internal/tor"
)

func testRouterConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.File = &config.File{
		Hosts: map[string]config.HostConfig{
			"slow.example":   {Timeout: time.Minute},
			"local.example":  {Proxy: config.ProxyDirect},
			"onion.example":  {Proxy: "127.0.0.1:9150"},
			"broken.example": {Proxy: "no-port"},
		},
	}
	return cfg
}

func TestRouterRouteFor(t *testing.T) {
	t.Parallel()

	torDialer, err := tor.NewClient(config.DefaultTorProxyAddress, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger := log.Discard()

	tests := []struct {
		name      string
		torDialer *tor.Client
		host      string
		wantTor   bool
		wantProxy string
	}{
		{name: "direct without tor", host: "example.org"},
		{name: "every host goes through embedded tor", torDialer: torDialer, host: "example.org", wantTor: true},
		{name: "direct entry bypasses embedded tor", torDialer: torDialer, host: "LOCAL.example"},
		{name: "host proxy wins over embedded tor", torDialer: torDialer, host: "onion.example", wantProxy: "127.0.0.1:9150"},
		{name: "host proxy without tor", host: "onion.example", wantProxy: "127.0.0.1:9150"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newRouter(testRouterConfig(), logger, tt.torDialer, nil)
			rt := r.routeFor(tt.host)
			if rt.viaTor != tt.wantTor {
				t.Errorf("viaTor = %v, want %v", rt.viaTor, tt.wantTor)
			}
			if rt.settings.Proxy != tt.wantProxy {
				t.Errorf("proxy = %q, want %q", rt.settings.Proxy, tt.wantProxy)
			}
		})
	}
}

func TestRouterClientFor(t *testing.T) {
	t.Parallel()

	r := newRouter(testRouterConfig(), log.Discard(), nil, nil)

	t.Run("hosts with the same route share a client", func(t *testing.T) {
		t.Parallel()
		if r.clientFor("a.example") != r.clientFor("b.example") {
			t.Error("expected one client for both hosts")
		}
	})

	t.Run("a host override gets its own client", func(t *testing.T) {
		t.Parallel()
		if r.clientFor("a.example") == r.clientFor("slow.example") {
			t.Error("expected a separate client for the slow host")
		}
	})
}

func TestRouterFetch(t *testing.T) {
	t.Parallel()

	hole := newTestHole(t)
	logger := log.Discard()

	t.Run("an unusable host proxy fails the fetch", func(t *testing.T) {
		t.Parallel()

		r := newRouter(testRouterConfig(), logger, nil, nil)
		_, err := r.Fetch(context.Background(), gopher.Request{
			Address: model.MustParseAddress("gopher://broken.example/"),
		})
		if gopher.KindOf(err) != gopher.KindInvalidURL {
			t.Errorf("expected InvalidURL, got %v", err)
		}
		if !errors.Is(err, tor.ErrInvalidProxyAddress) {
			t.Errorf("expected the proxy error as cause, got %v", err)
		}
	})

	t.Run("an onion host needs a proxy", func(t *testing.T) {
		t.Parallel()

		r := newRouter(config.NewConfig(), logger, nil, nil)
		_, err := r.Fetch(context.Background(), gopher.Request{
			Address: model.NewAddress(strings.Repeat("a", 56)+".onion", 70, ""),
		})
		if !errors.Is(err, tor.ErrOnionNeedsProxy) {
			t.Errorf("expected ErrOnionNeedsProxy, got %v", err)
		}
	})

	t.Run("records every fetch in the fetch log", func(t *testing.T) {
		t.Parallel()

		visits, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open fetch log: %v", err)
		}
		defer visits.Close()

		r := newRouter(config.NewConfig(), logger, nil, visits)
		ctx := context.Background()

		page, err := r.Fetch(ctx, gopher.Request{Address: model.MustParseAddress(hole.url('0', "/readme"))})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		down := model.MustParseAddress("gopher://" + closedAddress(t) + "/0/readme")
		if _, err := r.Fetch(ctx, gopher.Request{Address: down}); gopher.KindOf(err) != gopher.KindConnectFailed {
			t.Fatalf("expected ConnectFailed, got %v", err)
		}
		r.Wait()

		rows, err := visits.Recent(ctx, 0)
		if err != nil {
			t.Fatalf("failed to read fetch log: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("expected 2 fetches, got %d", len(rows))
		}

		for _, row := range rows {
			switch row.URL {
			case page.URL:
				if row.Status != database.StatusOK || row.SHA256 != page.Hash {
					t.Errorf("unexpected row for the fetched page: %+v", row)
				}
			case down.URL():
				if row.Status != database.StatusFailed || row.ErrorKind != "ConnectFailed" {
					t.Errorf("unexpected row for the failed fetch: %+v", row)
				}
			default:
				t.Errorf("unexpected row %+v", row)
			}
		}
	})
}
