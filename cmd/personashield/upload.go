package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nao1215/personashield/internal/client"
	"github.com/nao1215/personashield/internal/config"
	"github.com/nao1215/personashield/internal/ingest"
	"github.com/nao1215/personashield/internal/report"
	"github.com/nao1215/personashield/internal/tor"
	"github.com/nao1215/personashield/internal/tui"
)

// errUploadFailed is returned when at least one document was not analyzed.
var errUploadFailed = errors.New(client.FailureMessage)

// NewUploadCmd creates the upload command.
func NewUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <pdf>...",
		Short: "Analyze resume PDFs with the PersonaShield service",
		Long: `Upload inspects each PDF locally, sends it to the analysis service and makes
the returned analysis the current one. Every analysis is appended to the
local history and every attempt to the upload log.

Several files are uploaded concurrently (--batch); their analyses are added
to the history in the order given on the command line.

Examples:
  # Analyze one resume with a progress bar
  personashield upload --progress resume.pdf

  # Analyze several resumes, two at a time
  personashield upload -b 2 cv-2023.pdf cv-2024.pdf cv-2025.pdf

  # Upload through an embedded Tor daemon
  personashield upload --tor resume.pdf

  # Upload through an existing SOCKS5 proxy
  personashield upload --proxy 127.0.0.1:9050 resume.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: runUploadCmd,
	}

	addServiceFlags(cmd)
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent uploads")
	cmd.Flags().BoolP("progress", "P", false,
		"Show an interactive progress bar (single file only)")
	cmd.Flags().BoolP("json", "j", false,
		"Print the analysis summaries as JSON")

	return cmd
}

// addServiceFlags adds the flags that shape how uploads reach the service.
func addServiceFlags(cmd *cobra.Command) {
	cmd.Flags().String("api-url", "",
		"Analysis service base URL (default: "+config.DefaultAPIBaseURL+")")
	cmd.Flags().DurationP("timeout", "t", 0,
		"Upload timeout (default: 2m0s)")
	cmd.Flags().Bool("tor", false,
		"Upload through an embedded Tor daemon")
	cmd.Flags().String("proxy", "",
		"Upload through an existing SOCKS5 proxy (host:port)")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")
}

// applyServiceFlags copies the service flags that were set onto cfg.
func applyServiceFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if v := stringFlag(cmd, "api-url"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := stringFlag(cmd, "proxy"); v != "" {
		cfg.ProxyAddress = v
	}
	if cmd.Flags().Changed("timeout") {
		if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
			return err
		}
	}
	if cfg.UseTor, err = cmd.Flags().GetBool("tor"); err != nil {
		return err
	}
	if cmd.Flags().Changed("tor-timeout") {
		if cfg.TorStartupTimeout, err = cmd.Flags().GetDuration("tor-timeout"); err != nil {
			return err
		}
	}
	if cfg.UseTor && cfg.ProxyAddress != "" {
		return config.ErrConflictingProxy
	}
	return nil
}

// runUploadCmd executes the upload command.
func runUploadCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyServiceFlags(cmd, cfg); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cmd.Flags().Changed("batch") {
		if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
			return err
		}
	}

	a, err := openAppWith(cmd, cfg, setupLogger(cmd, cfg.Verbose))
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	showProgress, err := cmd.Flags().GetBool("progress")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	var progress func(ingest.Event)
	if len(args) > 1 {
		progress = batchProgressPrinter(cmd.ErrOrStderr())
	}

	in, release, err := newIngestor(ctx, a, progress)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			a.logger.Warn("failed to release proxy", "error", err)
		}
	}()

	var jobs []*ingest.Job
	switch {
	case len(args) == 1 && showProgress:
		job, err := runUploadProgram(ctx, cmd, args[0], in.Ingest)
		if err != nil {
			return err
		}
		jobs = []*ingest.Job{job}
	case len(args) == 1:
		job, _ := in.Ingest(ctx, args[0]) //nolint:errcheck // reported through job.Err
		jobs = []*ingest.Job{job}
	default:
		fmt.Fprintf(cmd.ErrOrStderr(), "Uploading %d documents (concurrency: %d)...\n", len(args), cfg.BatchSize)
		if jobs, err = in.IngestBatch(ctx, args); err != nil && ctx.Err() != nil {
			return fmt.Errorf("upload canceled: %w", err)
		}
	}

	return printUploadResults(cmd, a, jobs, jsonOutput)
}

// newIngestor wires the proxy, the upload client and the local stores. The
// returned release function stops an embedded Tor daemon.
func newIngestor(ctx context.Context, a *app, progress func(ingest.Event)) (*ingest.Ingestor, func() error, error) {
	cfg := a.cfg
	opts := tor.ConnectOptions{
		ProxyAddress:   cfg.ProxyAddress,
		UseEmbedded:    cfg.UseTor,
		StartupTimeout: cfg.TorStartupTimeout,
		Timeout:        cfg.Timeout,
		Logger:         a.logger,
	}
	if opts.UseEmbedded && opts.ProxyAddress == "" {
		fmt.Fprintln(a.stderr, "Starting embedded Tor daemon (this may take a few minutes)...")
	}

	tc, release, err := tor.Connect(ctx, opts)
	if err != nil {
		return nil, release, fmt.Errorf("failed to connect to Tor: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if tc != nil {
		if cfg.ProxyAddress != "" {
			target := serviceAddress(cfg.APIBaseURL)
			if status := tc.CheckConnection(ctx, target); status != tor.ProxyStatusOK {
				_ = release()
				return nil, func() error { return nil }, fmt.Errorf("proxy check failed: %w (make sure a SOCKS5 proxy is running at %s)",
					status.Error(), cfg.ProxyAddress)
			}
		}
		a.logger.Info("uploading through proxy", "proxy", tc.ProxyAddress())
		httpClient = tc.NewHTTPClient()
	}

	c, err := client.New(cfg.APIBaseURL,
		client.WithHTTPClient(httpClient),
		client.WithUserAgent(cfg.UserAgent),
		client.WithLogger(a.logger),
	)
	if err != nil {
		_ = release()
		return nil, func() error { return nil }, err
	}

	in := ingest.New(
		newInspector(cfg),
		c,
		ingest.WithSink(a.store),
		ingest.WithUploadLog(a.db),
		ingest.WithConcurrency(cfg.BatchSize),
		ingest.WithLogger(a.logger),
		ingest.WithProgress(progress),
	)
	return in, release, nil
}

// serviceAddress returns the host:port of the analysis service.
func serviceAddress(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}
	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}
	return net.JoinHostPort(u.Hostname(), port)
}

// batchProgressPrinter prints one line per finished document.
func batchProgressPrinter(w io.Writer) func(ingest.Event) {
	var mu sync.Mutex
	return func(ev ingest.Event) {
		if ev.Stage == ingest.StageStarted {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		mark := "✓"
		if ev.Stage == ingest.StageFailed {
			mark = "✗"
		}
		fmt.Fprintf(w, "[%d/%d] %s %s (%s)\n", ev.Index+1, ev.Total, mark, ev.Job.Name, ev.Job.Elapsed.Round(time.Millisecond))
	}
}

// runUploadProgram uploads one file under the bubbletea progress view.
func runUploadProgram(ctx context.Context, cmd *cobra.Command, path string, fn tui.IngestFunc) (*ingest.Job, error) {
	p := tea.NewProgram(
		tui.NewUpload(ctx, path, fn),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.ErrOrStderr()),
	)
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress display failed: %w", err)
	}
	m, ok := final.(tui.Upload)
	if !ok || !m.Done() {
		return nil, errors.New("upload interrupted")
	}
	job, _ := m.Result() //nolint:errcheck // reported through job.Err
	return job, nil
}

// printUploadResults prints a summary per analyzed document and a failure
// line per other document.
func printUploadResults(cmd *cobra.Command, a *app, jobs []*ingest.Job, jsonOutput bool) error {
	var (
		out    = cmd.OutOrStdout()
		failed int
		writer report.Writer
	)
	if jsonOutput {
		writer = report.NewJSONWriter(out, report.WithPrettyPrint())
	} else {
		writer = report.NewSimpleWriter(out)
	}

	for i, job := range jobs {
		if job == nil {
			failed++
			continue
		}
		if !job.Succeeded() {
			failed++
			a.logger.Debug("upload failed", slog.String("file", job.Name), slog.Any("error", job.Err))
			if len(jobs) > 1 {
				fmt.Fprintf(cmd.ErrOrStderr(), "✗ %s: %s\n", job.Name, client.FailureMessage)
			}
			continue
		}
		if i > 0 && !jsonOutput {
			fmt.Fprintln(out)
		}
		if !jsonOutput {
			fmt.Fprintf(out, "✓ %s\n", job.Name)
		}
		rep := report.New(job.Analysis, a.viewOptions()).WithInspection(job.Inspection)
		if _, err := writer.WriteSummary(report.NewSummary(rep)); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	switch {
	case failed == 0:
		return nil
	case len(jobs) == 1:
		return errUploadFailed
	default:
		return fmt.Errorf("%d of %d uploads failed: %w", failed, len(jobs), errUploadFailed)
	}
}
