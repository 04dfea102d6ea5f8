package main

import (
	"fmt"

	"github.com/spf13/cobra"

	pslog "github.com/nao1215/personashield/internal/log"
	"github.com/nao1215/personashield/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API for a browser frontend",
		Long: `Serve exposes the local analysis history over HTTP and pushes every change
of the current analysis over a WebSocket.

Endpoints:
  GET    /health
  GET    /api/pages
  GET    /api/views/{page}
  GET    /api/snapshot
  GET    /api/report?format=json|markdown|text
  GET    /api/uploads?limit=N
  GET    /api/analysis/current
  DELETE /api/analysis/current
  GET    /api/analysis/history
  POST   /api/analysis/history/{index}/restore
  POST   /api/analysis/upload          (multipart field "file")
  GET    /ws                           (change feed)

Logs are written as JSON to stderr.

Examples:
  personashield serve
  personashield serve --listen 127.0.0.1:9000 --proxy 127.0.0.1:9050`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", "", "Listen address (default: 127.0.0.1:8787)")
	addServiceFlags(cmd)

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyServiceFlags(cmd, cfg); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if v := stringFlag(cmd, "listen"); v != "" {
		cfg.ListenAddress = v
	}

	logger := pslog.NewSecureJSONLogger(cmd.ErrOrStderr(), cfg.Verbose)
	a, err := openAppWith(cmd, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	in, release, err := newIngestor(ctx, a, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			logger.Warn("failed to release proxy", "error", err)
		}
	}()

	srv := server.New(a.store,
		server.WithIngester(in),
		server.WithUploadHistory(a.db),
		server.WithLogger(logger),
		server.WithAllowedOrigins(cfg.AllowedOrigins),
		server.WithViewOptions(a.viewOptions()),
		server.WithMaxUploadSize(cfg.MaxFileSize),
		server.WithVersion(getVersion()),
	)

	fmt.Fprintf(cmd.ErrOrStderr(), "Serving the dashboard API on http://%s (Ctrl+C to stop)\n", cfg.ListenAddress)
	return srv.ListenAndServe(ctx, cfg.ListenAddress)
}
