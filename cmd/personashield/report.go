package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/nao1215/personashield/internal/config"
	"github.com/nao1215/personashield/internal/database"
	"github.com/nao1215/personashield/internal/pdfmeta"
	"github.com/nao1215/personashield/internal/report"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a report of an analysis",
		Long: `Report writes every dashboard page of the latest analysis (or the history
entry given with --index) as plain text, JSON or GitHub Flavored Markdown.

Examples:
  # Human-readable report of the latest analysis
  personashield report

  # Markdown report of the first analysis, saved to a file
  personashield report --index 0 --markdown -o reports/first.md

  # JSON report for tool integration
  personashield report --json

  # Include what the document itself leaks through its metadata
  personashield report -d resume.pdf`,
		Args: cobra.NoArgs,
		RunE: runReportCmd,
	}

	cmd.Flags().IntP("index", "i", -1,
		"History entry to report; negative values count from the newest")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().StringP("document", "d", "",
		"Include the local metadata findings of this PDF")
	cmd.Flags().Bool("show-empty", false,
		"Include sections without data in the text report")

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	showEmpty, err := cmd.Flags().GetBool("show-empty")
	if err != nil {
		return err
	}
	index, err := cmd.Flags().GetInt("index")
	if err != nil {
		return err
	}
	document, err := cmd.Flags().GetString("document")
	if err != nil {
		return err
	}

	a, err := openAppWith(cmd, cfg, setupLogger(cmd, cfg.Verbose))
	if err != nil {
		return err
	}
	defer a.close()

	r, err := a.selectAnalysis(index)
	if err != nil {
		return err
	}

	rep := report.New(r, a.viewOptions())
	if document != "" {
		if err := attachInspection(cmd, a, rep, document); err != nil {
			return err
		}
	}

	return outputReport(cmd, cfg, rep, showEmpty)
}

// outputReport writes rep in the configured format to the configured
// destination.
func outputReport(cmd *cobra.Command, cfg *config.Config, rep *report.Report, showEmpty bool) error {
	var output io.Writer = cmd.OutOrStdout()
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports contain personal data and must only be readable by the owner.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output,
			report.WithShowEmpty(showEmpty),
			report.WithVerbose(cfg.Verbose),
		)
	}

	if _, err := writer.Write(rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if cfg.ReportFile != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", cfg.ReportFile)
	}
	return nil
}

// attachInspection adds the pre-flight findings of the document at path.
// A document whose fingerprint the upload log never tied to the analysis is
// still attached, with a warning.
func attachInspection(cmd *cobra.Command, a *app, rep *report.Report, path string) error {
	ctx := cmd.Context()
	res, err := newInspector(a.cfg).InspectFile(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", path, err)
	}

	uploads, err := a.db.UploadsByFingerprint(ctx, res.Fingerprint)
	if err != nil {
		return err
	}
	matches := slices.ContainsFunc(uploads, func(u database.UploadRecord) bool {
		return u.AnalysisID != "" && u.AnalysisID == rep.Dashboard.AnalysisID
	})
	if !matches {
		a.logger.Warn("document is not the upload behind this analysis",
			"file", res.Name, "analysis_id", rep.Dashboard.AnalysisID)
	}

	rep.WithInspection(res)
	return nil
}

// newInspector returns the pre-flight inspector for cfg.
func newInspector(cfg *config.Config) *pdfmeta.Inspector {
	return pdfmeta.NewInspector(pdfmeta.WithMaxSize(cfg.MaxFileSize))
}
