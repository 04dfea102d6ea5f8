package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/personashield/internal/model"
	"github.com/nao1215/personashield/internal/risk"
	"github.com/nao1215/personashield/internal/view"
)

// Constants for risk direction.
const (
	riskDirectionWorsened  = "worsened"
	riskDirectionImproved  = "improved"
	riskDirectionUnchanged = "unchanged"
	riskDirectionUnknown   = "unknown"
)

// NewCompareCmd creates the compare command.
// This command compares two analyses of the local history.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [from-index] [to-index]",
		Short: "Compare two analyses from the history",
		Long: `Compare shows how the exposure changed between two analyses, typically two
versions of the same resume:
- The risk score and level change
- Score breakdown factors that grew, shrank, appeared or disappeared
- Attack vectors that appeared or were resolved

Without arguments the two newest analyses are compared. Negative indexes
count from the newest entry.

Examples:
  # Compare the latest two analyses
  personashield compare

  # Compare the first analysis with the latest one
  personashield compare 0 -1

  # Output the comparison as Markdown
  personashield compare --markdown`,
		Args: cobra.RangeArgs(0, 2),
		RunE: runCompareCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// comparedEntry identifies one side of a comparison.
type comparedEntry struct {
	Index      int          `json:"index"`
	AnalysisID string       `json:"analysis_id"`
	Timestamp  string       `json:"timestamp,omitempty"`
	RiskScore  model.Number `json:"risk_score"`
	RiskLevel  risk.Level   `json:"risk_level,omitempty"`
}

// factorDelta is the change of one score breakdown factor. A nil side means
// the factor was absent.
type factorDelta struct {
	Key   string   `json:"key"`
	Label string   `json:"label"`
	From  *float64 `json:"from"`
	To    *float64 `json:"to"`
	Delta float64  `json:"delta"`
}

// comparison is the difference between two analyses.
type comparison struct {
	From       comparedEntry `json:"from"`
	To         comparedEntry `json:"to"`
	ScoreDelta *float64      `json:"score_delta"`
	Direction  string        `json:"direction"`

	Factors         []factorDelta `json:"factors"`
	NewVectors      []string      `json:"new_vectors"`
	ResolvedVectors []string      `json:"resolved_vectors"`
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return fmt.Errorf("--json and --markdown cannot be used together")
	}

	// Validate arguments before opening the database.
	fromIndex, toIndex := -2, -1
	indexes := []*int{&fromIndex, &toIndex}
	for i, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid history index %q: %w", arg, err)
		}
		*indexes[i] = n
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	history := a.store.History()
	if len(history) < 2 {
		return fmt.Errorf("comparison needs at least two analyses, history has %d", len(history))
	}
	from, fromPos, err := historyEntry(history, fromIndex)
	if err != nil {
		return err
	}
	to, toPos, err := historyEntry(history, toIndex)
	if err != nil {
		return err
	}

	c := compareAnalyses(from, fromPos, to, toPos)
	out := cmd.OutOrStdout()
	switch {
	case jsonOutput:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(c)
	case markdownOutput:
		return writeComparisonMarkdown(out, c)
	default:
		writeComparisonText(out, c)
		return nil
	}
}

// historyEntry resolves a possibly negative index.
func historyEntry(history []*model.AnalysisResult, index int) (*model.AnalysisResult, int, error) {
	pos := index
	if pos < 0 {
		pos += len(history)
	}
	if pos < 0 || pos >= len(history) {
		return nil, 0, fmt.Errorf("no history entry %d (history has %d entries)", index, len(history))
	}
	return history[pos], pos, nil
}

func newComparedEntry(r *model.AnalysisResult, index int) comparedEntry {
	e := comparedEntry{
		Index:      index,
		AnalysisID: r.ID(),
		Timestamp:  r.Timestamp(),
		RiskScore:  r.RiskScore(),
	}
	if level, ok := risk.RiskLevel(e.RiskScore); ok {
		e.RiskLevel = level
	}
	return e
}

// compareAnalyses computes the difference from one analysis to another.
func compareAnalyses(from *model.AnalysisResult, fromIndex int, to *model.AnalysisResult, toIndex int) comparison {
	c := comparison{
		From:            newComparedEntry(from, fromIndex),
		To:              newComparedEntry(to, toIndex),
		Direction:       riskDirectionUnknown,
		Factors:         []factorDelta{},
		NewVectors:      []string{},
		ResolvedVectors: []string{},
	}

	if c.From.RiskScore.Valid && c.To.RiskScore.Valid {
		delta := c.To.RiskScore.Value - c.From.RiskScore.Value
		c.ScoreDelta = &delta
		switch {
		case delta > 0:
			c.Direction = riskDirectionWorsened
		case delta < 0:
			c.Direction = riskDirectionImproved
		default:
			c.Direction = riskDirectionUnchanged
		}
	}

	c.Factors = factorDeltas(view.WeightedRisk(from).Matrix, view.WeightedRisk(to).Matrix)

	fromVectors := vectorCategories(from)
	toVectors := vectorCategories(to)
	for _, v := range orderedKeys(toVectors) {
		if !fromVectors[v] {
			c.NewVectors = append(c.NewVectors, v)
		}
	}
	for _, v := range orderedKeys(fromVectors) {
		if !toVectors[v] {
			c.ResolvedVectors = append(c.ResolvedVectors, v)
		}
	}
	return c
}

// factorDeltas pairs factors by key: changed and new factors in the newer
// ranking order, then removed factors in the older order.
func factorDeltas(from, to []view.MatrixEntry) []factorDelta {
	old := make(map[string]view.MatrixEntry, len(from))
	for _, e := range from {
		old[e.Key] = e
	}

	out := make([]factorDelta, 0, len(from)+len(to))
	seen := make(map[string]bool, len(to))
	for _, e := range to {
		seen[e.Key] = true
		d := factorDelta{Key: e.Key, Label: e.Label, To: ptr(e.Value), Delta: e.Value}
		if prev, ok := old[e.Key]; ok {
			d.From = ptr(prev.Value)
			d.Delta = e.Value - prev.Value
			if d.Delta == 0 {
				continue
			}
		}
		out = append(out, d)
	}
	for _, e := range from {
		if !seen[e.Key] {
			out = append(out, factorDelta{Key: e.Key, Label: e.Label, From: ptr(e.Value), Delta: -e.Value})
		}
	}
	return out
}

// vectorCategories returns the set of attack vector categories of r.
func vectorCategories(r *model.AnalysisResult) map[string]bool {
	set := make(map[string]bool)
	for _, card := range view.AttackVectors(r).Cards {
		set[card.Category] = true
	}
	return set
}

// orderedKeys returns the keys of set in lexical order.
func orderedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func ptr(v float64) *float64 { return &v }

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func formatDelta(v float64) string {
	return fmt.Sprintf("%+.2f", v)
}

func entryLine(e comparedEntry) string {
	level := "-"
	if e.RiskLevel != "" {
		level = string(e.RiskLevel)
	}
	return fmt.Sprintf("#%d %s (score %s, %s)", e.Index, orDash(e.AnalysisID), e.RiskScore.String(), level)
}

// writeComparisonText prints the comparison in human-readable form.
func writeComparisonText(w io.Writer, c comparison) {
	fmt.Fprintf(w, "From: %s\n", entryLine(c.From))
	fmt.Fprintf(w, "To:   %s\n\n", entryLine(c.To))

	if c.ScoreDelta != nil {
		fmt.Fprintf(w, "Risk score %s (%s)\n", c.Direction, formatDelta(*c.ScoreDelta))
	} else {
		fmt.Fprintln(w, "Risk score not comparable (missing score)")
	}
	if levelChanged(c) {
		fmt.Fprintf(w, "Risk level %s -> %s\n", orDash(string(c.From.RiskLevel)), orDash(string(c.To.RiskLevel)))
	}

	if len(c.Factors) > 0 {
		fmt.Fprintln(w, "\nScore breakdown changes:")
		for _, f := range c.Factors {
			fmt.Fprintf(w, "  %-30s %8s -> %-8s %s\n", f.Label, formatOptional(f.From), formatOptional(f.To), formatDelta(f.Delta))
		}
	}
	if len(c.NewVectors) > 0 {
		fmt.Fprintln(w, "\nNew attack vectors:")
		for _, v := range c.NewVectors {
			fmt.Fprintf(w, "  [+] %s\n", v)
		}
	}
	if len(c.ResolvedVectors) > 0 {
		fmt.Fprintln(w, "\nResolved attack vectors:")
		for _, v := range c.ResolvedVectors {
			fmt.Fprintf(w, "  [-] %s\n", v)
		}
	}
}

// writeComparisonMarkdown writes the comparison as GitHub Flavored Markdown.
func writeComparisonMarkdown(w io.Writer, c comparison) error {
	md := markdown.NewMarkdown(w)
	md.H1("PersonaShield Comparison")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"", "Index", "Analysis ID", "Risk Score", "Risk Level"},
		Rows: [][]string{
			{"From", strconv.Itoa(c.From.Index), orDash(c.From.AnalysisID), c.From.RiskScore.String(), orDash(string(c.From.RiskLevel))},
			{"To", strconv.Itoa(c.To.Index), orDash(c.To.AnalysisID), c.To.RiskScore.String(), orDash(string(c.To.RiskLevel))},
		},
	})
	md.PlainText("")

	switch c.Direction {
	case riskDirectionWorsened:
		md.Warningf("Risk score worsened by %.2f", *c.ScoreDelta)
	case riskDirectionImproved:
		md.Tip(fmt.Sprintf("Risk score improved by %.2f", -*c.ScoreDelta))
	case riskDirectionUnchanged:
		md.Note("Risk score unchanged")
	default:
		md.Note("Risk score not comparable (missing score)")
	}
	md.PlainText("")

	if len(c.Factors) > 0 {
		md.H2("Score Breakdown Changes")
		md.PlainText("")
		rows := make([][]string, 0, len(c.Factors))
		for _, f := range c.Factors {
			rows = append(rows, []string{f.Label, formatOptional(f.From), formatOptional(f.To), formatDelta(f.Delta)})
		}
		md.Table(markdown.TableSet{Header: []string{"Factor", "From", "To", "Change"}, Rows: rows})
		md.PlainText("")
	}
	if len(c.NewVectors) > 0 {
		md.H2("New Attack Vectors")
		md.PlainText("")
		md.BulletList(c.NewVectors...)
		md.PlainText("")
	}
	if len(c.ResolvedVectors) > 0 {
		md.H2("Resolved Attack Vectors")
		md.PlainText("")
		md.BulletList(c.ResolvedVectors...)
		md.PlainText("")
	}

	if err := md.Build(); err != nil {
		return fmt.Errorf("failed to write comparison: %w", err)
	}
	return nil
}

// levelChanged reports whether the dashboard level differs between sides.
func levelChanged(c comparison) bool {
	return !strings.EqualFold(string(c.From.RiskLevel), string(c.To.RiskLevel))
}
