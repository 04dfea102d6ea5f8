package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/personashield/internal/model"
	"github.com/nao1215/personashield/internal/risk"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past analyses",
		Long: `History lists every analysis in the local history, oldest first. The
index in the first column is what --index expects in dashboard, simulate
and report.

Examples:
  personashield history
  personashield history show -1
  personashield history uploads --limit 20`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}
	cmd.Flags().BoolP("json", "j", false, "Output the history entries as JSON")

	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryUploadsCmd())
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <index>",
		Short: "Print one history entry as stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[0], err)
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			r, err := a.selectAnalysis(index)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(r.Raw()))
			return nil
		},
	}
}

func newHistoryUploadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uploads",
		Short: "List upload attempts, newest first",
		Args:  cobra.NoArgs,
		RunE:  runHistoryUploadsCmd,
	}
	cmd.Flags().IntP("limit", "n", 20, "Number of records to show (0 for all)")
	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	history := a.store.History()
	out := cmd.OutOrStdout()

	if jsonOutput {
		if history == nil {
			history = []*model.AnalysisResult{}
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(history)
	}

	if len(history) == 0 {
		fmt.Fprintln(out, "No analyses yet.")
		fmt.Fprintln(out, "\nUse 'personashield upload <pdf>' to analyze a resume.")
		return nil
	}

	fmt.Fprintf(out, "Analysis history (%d entries):\n\n", len(history))
	fmt.Fprintf(out, "  %-6s  %-38s  %-22s  %-7s  %s\n", "INDEX", "ANALYSIS ID", "TIMESTAMP", "SCORE", "LEVEL")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 90))
	for i, r := range history {
		fmt.Fprintf(out, "  %-6d  %-38s  %-22s  %-7s  %s\n",
			i,
			orDash(r.ID()),
			orDash(r.Timestamp()),
			r.RiskScore().String(),
			levelText(r.RiskScore()),
		)
	}
	fmt.Fprintln(out, "\nUse 'personashield report --index <index>' to see an entry.")
	return nil
}

// runHistoryUploadsCmd executes the history uploads command.
func runHistoryUploadsCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	records, err := a.db.ListUploads(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to list uploads: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No uploads recorded.")
		return nil
	}

	fmt.Fprintf(out, "  %-20s  %-28s  %-9s  %-7s  %-8s  %s\n", "DATE", "FILE", "STATUS", "SCORE", "FINDINGS", "REQUEST ID")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 110))
	for _, rec := range records {
		score := "-"
		if rec.RiskScore.Valid {
			score = strconv.FormatFloat(rec.RiskScore.Float64, 'f', -1, 64)
		}
		fmt.Fprintf(out, "  %-20s  %-28s  %-9s  %-7s  %-8d  %s\n",
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			truncate(rec.FileName, 28),
			rec.Status,
			score,
			rec.Findings,
			rec.RequestID,
		)
	}
	return nil
}

// levelText returns the dashboard risk level of score, or "-".
func levelText(score model.Number) string {
	level, ok := risk.RiskLevel(score)
	if !ok {
		return "-"
	}
	return string(level)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
