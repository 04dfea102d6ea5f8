package tor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/tornago"
)

// DefaultStartupTimeout bounds the bootstrap of an embedded daemon.
const DefaultStartupTimeout = 3 * time.Minute

// EmbeddedTor runs a private Tor daemon through tornago for the lifetime of
// one command, so that `upload --tor` works without a system Tor.
type EmbeddedTor struct {
	process *tornago.TorProcess

	// socksAddr and controlAddr are set after a successful Start.
	socksAddr   string
	controlAddr string

	startupTimeout time.Duration
	logger         *slog.Logger
}

// EmbeddedTorOption configures an EmbeddedTor instance.
type EmbeddedTorOption func(*EmbeddedTor)

// WithStartupTimeout sets the maximum time to wait for Tor to bootstrap.
func WithStartupTimeout(timeout time.Duration) EmbeddedTorOption {
	return func(e *EmbeddedTor) {
		if timeout > 0 {
			e.startupTimeout = timeout
		}
	}
}

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(logger *slog.Logger) EmbeddedTorOption {
	return func(e *EmbeddedTor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEmbeddedTor creates an embedded daemon manager. Call Start to launch it.
func NewEmbeddedTor(opts ...EmbeddedTorOption) *EmbeddedTor {
	e := &EmbeddedTor{
		startupTimeout: DefaultStartupTimeout,
		logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the daemon on OS-assigned loopback ports and blocks until it
// has bootstrapped, the startup timeout passes, or ctx is canceled. A daemon
// that finishes starting after cancellation is stopped.
func (e *EmbeddedTor) Start(ctx context.Context) error {
	launchCfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr("127.0.0.1:0"),
		tornago.WithTorControlAddr("127.0.0.1:0"),
		tornago.WithTorStartupTimeout(e.startupTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create Tor launch config: %w", err)
	}

	e.logger.Info("starting embedded Tor daemon", "timeout", e.startupTimeout)

	type startResult struct {
		process *tornago.TorProcess
		err     error
	}
	resultCh := make(chan startResult, 1)
	go func() {
		process, err := tornago.StartTorDaemon(launchCfg)
		resultCh <- startResult{process, err}
	}()

	select {
	case result := <-resultCh:
		if result.err != nil {
			return fmt.Errorf("failed to start embedded Tor daemon: %w", result.err)
		}
		e.process = result.process
		e.socksAddr = result.process.SocksAddr()
		e.controlAddr = result.process.ControlAddr()
		e.logger.Info("embedded Tor daemon ready", "socks", e.socksAddr)
		return nil
	case <-ctx.Done():
		go func() {
			if result := <-resultCh; result.process != nil {
				_ = result.process.Stop() //nolint:errcheck // best effort cleanup
			}
		}()
		return ctx.Err()
	}
}

// Stop shuts the daemon down. It is safe to call more than once and on an
// instance that was never started.
func (e *EmbeddedTor) Stop() error {
	if e.process == nil {
		return nil
	}
	err := e.process.Stop()
	e.process = nil
	e.socksAddr = ""
	e.controlAddr = ""
	e.logger.Info("embedded Tor daemon stopped")
	return err
}

// SocksAddr returns the SOCKS5 address of the running daemon, or "".
func (e *EmbeddedTor) SocksAddr() string {
	return e.socksAddr
}

// ControlAddr returns the control port address of the running daemon, or "".
func (e *EmbeddedTor) ControlAddr() string {
	return e.controlAddr
}

// IsRunning reports whether the daemon is running.
func (e *EmbeddedTor) IsRunning() bool {
	return e.process != nil
}

// NewClient returns a Client for the running daemon's SOCKS port.
func (e *EmbeddedTor) NewClient(timeout time.Duration) (*Client, error) {
	if !e.IsRunning() {
		return nil, ErrNotRunning
	}
	return NewClient(e.socksAddr, timeout)
}

// ConnectOptions selects how uploads reach the network.
type ConnectOptions struct {
	// ProxyAddress is an existing SOCKS5 proxy. It wins over UseEmbedded.
	ProxyAddress string

	// UseEmbedded starts a private daemon when ProxyAddress is empty.
	UseEmbedded    bool
	StartupTimeout time.Duration

	// Timeout is the request timeout of the returned client.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Enabled reports whether uploads should go through a proxy at all.
func (o ConnectOptions) Enabled() bool {
	return o.ProxyAddress != "" || o.UseEmbedded
}

// Connect returns a Client for the configured proxy and a function that
// releases it. The release function stops an embedded daemon and is a no-op
// for an external proxy. Connect returns (nil, no-op, nil) when no proxy is
// configured.
func Connect(ctx context.Context, opts ConnectOptions) (*Client, func() error, error) {
	noop := func() error { return nil }

	switch {
	case opts.ProxyAddress != "":
		c, err := NewClient(opts.ProxyAddress, opts.Timeout)
		if err != nil {
			return nil, noop, err
		}
		return c, noop, nil
	case opts.UseEmbedded:
		embedded := NewEmbeddedTor(WithStartupTimeout(opts.StartupTimeout), WithLogger(opts.Logger))
		if err := embedded.Start(ctx); err != nil {
			return nil, noop, err
		}
		c, err := embedded.NewClient(opts.Timeout)
		if err != nil {
			_ = embedded.Stop()
			return nil, noop, err
		}
		return c, embedded.Stop, nil
	default:
		return nil, noop, nil
	}
}
