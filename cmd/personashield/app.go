package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/personashield/internal/auth"
	"github.com/nao1215/personashield/internal/config"
	"github.com/nao1215/personashield/internal/database"
	pslog "github.com/nao1215/personashield/internal/log"
	"github.com/nao1215/personashield/internal/model"
	"github.com/nao1215/personashield/internal/reveal"
	"github.com/nao1215/personashield/internal/store"
	"github.com/nao1215/personashield/internal/view"
)

// errNoAnalysis is returned by commands that need an analysis when the
// history is empty.
var errNoAnalysis = errors.New("no analysis yet: run `personashield upload <pdf>` first")

// app bundles the state every command works on.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *database.DB
	store  *store.Store
	auth   *auth.Store

	// stderr receives status lines that must show even when logging is quiet.
	stderr io.Writer
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// stringFlag returns a flag that may be defined on the command or inherited.
func stringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}
	return v
}

// loadConfig builds the configuration from defaults, the config file, the
// environment and the global flags, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.ConfigFilePath = stringFlag(cmd, "config")

	// If the user explicitly specified a config file path, error if not found.
	// If no path was specified, silently use defaults when no file is found.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	config.ApplyEnv(cfg, nil)

	if dir := stringFlag(cmd, "data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	return cfg, nil
}

// setupLogger creates the redacting logger for the CLI.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	return pslog.NewSecureLogger(cmd.ErrOrStderr(), verbose)
}

// openApp loads the configuration and opens the local database. The
// caller must call close.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return openAppWith(cmd, cfg, setupLogger(cmd, cfg.Verbose))
}

// openAppWith opens the local database for an already built configuration.
func openAppWith(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	db, err := database.Open(cfg.DataDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("database opened", "path", db.Path())

	ctx := cmd.Context()
	return &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		store:  store.New(ctx, db, store.WithLogger(logger)),
		auth:   auth.New(ctx, db, auth.WithLogger(logger)),
		stderr: cmd.ErrOrStderr(),
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", "error", err)
	}
}

func (a *app) viewOptions() view.Options {
	return view.Options{GaugeRadius: a.cfg.GaugeRadius}
}

func (a *app) revealConfig() reveal.Config {
	return reveal.Config{
		ReconInterval:     a.cfg.ReconInterval,
		NarrativeInterval: a.cfg.NarrativeInterval,
		BodyInterval:      a.cfg.BodyInterval,
		CounterInterval:   a.cfg.CounterInterval,
		ImpactDivisor:     a.cfg.ImpactDivisor,
	}
}

// requireUser returns the signed-in user name or auth.ErrNotSignedIn.
func (a *app) requireUser() (string, error) {
	u, ok := a.auth.Current()
	if !ok {
		return "", auth.ErrNotSignedIn
	}
	return u.Username, nil
}

// selectAnalysis makes history entry index the current analysis and
// returns it. Negative indexes count from the newest entry.
func (a *app) selectAnalysis(index int) (*model.AnalysisResult, error) {
	if a.store.Len() == 0 {
		return nil, errNoAnalysis
	}
	if !a.store.Restore(index) {
		return nil, fmt.Errorf("no history entry %d (history has %d entries)", index, a.store.Len())
	}
	r, _ := a.store.Current()
	return r, nil
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
