package tor

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestNewEmbeddedTor tests EmbeddedTor constructor.
func TestNewEmbeddedTor(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		opts     []EmbeddedTorOption
		expected time.Duration
	}{
		{"default timeout", nil, DefaultStartupTimeout},
		{"custom timeout", []EmbeddedTorOption{WithStartupTimeout(5 * time.Minute)}, 5 * time.Minute},
		{"zero keeps default", []EmbeddedTorOption{WithStartupTimeout(0)}, DefaultStartupTimeout},
		{"nil logger is ignored", []EmbeddedTorOption{WithLogger(nil)}, DefaultStartupTimeout},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			embedded := NewEmbeddedTor(tc.opts...)
			if embedded.startupTimeout != tc.expected {
				t.Errorf("expected timeout %v, got %v", tc.expected, embedded.startupTimeout)
			}
			if embedded.logger == nil {
				t.Error("expected a logger")
			}
		})
	}
}

// TestEmbeddedTorMethods tests EmbeddedTor methods without starting Tor.
func TestEmbeddedTorMethods(t *testing.T) {
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

// TestConnect tests proxy selection without starting a daemon.
func TestConnect(t *testing.T) {
	t.Parallel()

	t.Run("no proxy", func(t *testing.T) {
		t.Parallel()

		opts := ConnectOptions{}
		if opts.Enabled() {
			t.Error("expected proxying to be disabled")
		}
		client, release, err := Connect(context.Background(), opts)
		if err != nil || client != nil {
			t.Errorf("Connect = (%v, %v), expected no client", client, err)
		}
		if err := release(); err != nil {
			t.Errorf("release failed: %v", err)
		}
	})

	t.Run("external proxy wins over embedded", func(t *testing.T) {
		t.Parallel()

		opts := ConnectOptions{ProxyAddress: "127.0.0.1:9050", UseEmbedded: true, Timeout: time.Minute}
		client, release, err := Connect(context.Background(), opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer release()
		if client.ProxyAddress() != "127.0.0.1:9050" {
			t.Errorf("unexpected proxy %q", client.ProxyAddress())
		}
	})

	t.Run("invalid external proxy", func(t *testing.T) {
		t.Parallel()

		_, _, err := Connect(context.Background(), ConnectOptions{ProxyAddress: "nope"})
		if !errors.Is(err, ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})
}
