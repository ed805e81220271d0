package tor

import (
	"errors"
	"testing"
	"time"
)

// TestNewEmbeddedTor tests EmbeddedTor construction.
func TestNewEmbeddedTor(t *testing.T) {
	t.Parallel()

	t.Run("creates with default timeout", func(t *testing.T) {
		t.Parallel()

		embedded := NewEmbeddedTor()
		if embedded.startupTimeout != DefaultStartupTimeout {
			t.Errorf("expected default timeout %v, got %v", DefaultStartupTimeout, embedded.startupTimeout)
		}
	})

	t.Run("applies WithStartupTimeout", func(t *testing.T) {
		t.Parallel()

		embedded := NewEmbeddedTor(WithStartupTimeout(30 * time.Second))
		if embedded.startupTimeout != 30*time.Second {
			t.Errorf("expected timeout 30s, got %v", embedded.startupTimeout)
		}
	})
}

// TestEmbeddedTorNotStarted tests the accessors of a daemon that was never started.
func TestEmbeddedTorNotStarted(t *testing.T) {
	t.Parallel()

	embedded := NewEmbeddedTor()

	if embedded.SocksAddr() != "" || embedded.ControlAddr() != "" {
		t.Error("expected empty addresses before start")
	}
	if embedded.IsRunning() {
		t.Error("expected IsRunning to be false before start")
	}
	if err := embedded.Stop(); err != nil {
		t.Errorf("expected no error stopping unstarted instance, got %v", err)
	}
	if _, err := embedded.NewClient(30 * time.Second); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
}
