package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/personashield/internal/model"
	"github.com/nao1215/personashield/internal/risk"
	"github.com/nao1215/personashield/internal/view"
)

const ruleWidth = 70

// narrativePreview is the number of characters of long texts printed
// without WithVerbose.
const narrativePreview = 400

// SimpleWriter outputs human-readable plain text reports for the terminal.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether pages without data are shown.
	showEmpty bool

	// verbose prints long texts in full and adds finding details.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the full report in human-readable format.
func (w *SimpleWriter) Write(rep *Report) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, rep)
	w.writeRecon(&sb, rep.Dashboard.Recon)
	w.writeBreakdown(&sb, rep.Dashboard.WeightedRisk)
	w.writeAttackVectors(&sb, rep.Dashboard.AttackVectors)
	w.writeMetrics(&sb, rep.Dashboard)
	w.writePersona(&sb, rep.Dashboard)
	w.writeThreats(&sb, rep.Dashboard.DigitalTwin)
	w.writeHardening(&sb, rep.Dashboard.Hardening)
	w.writeFindings(&sb, rep)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// WriteSummary outputs the summary in human-readable format.
func (w *SimpleWriter) WriteSummary(s *Summary) (int, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Analysis:   %s\n", orDash(s.AnalysisID))
	if s.Timestamp != "" {
		fmt.Fprintf(&sb, "Timestamp:  %s\n", s.Timestamp)
	}
	fmt.Fprintf(&sb, "Risk Score: %s\n", scoreText(s.RiskScore))
	fmt.Fprintf(&sb, "Risk Level: %s\n", LevelLine(s.RiskLevel, s.ServerRiskLevel))
	fmt.Fprintf(&sb, "Vectors:    %d high, %d medium, %d low\n", s.Tally.High, s.Tally.Medium, s.Tally.Low)
	if len(s.EntityTypes) > 0 {
		fmt.Fprintf(&sb, "Entities:   %d (%s)\n", s.Entities, strings.Join(s.EntityTypes, ", "))
	} else {
		fmt.Fprintf(&sb, "Entities:   %d\n", s.Entities)
	}
	if s.Findings > 0 {
		fmt.Fprintf(&sb, "Findings:   %d\n", s.Findings)
	}
	for _, f := range s.TopFactors {
		fmt.Fprintf(&sb, "  [+] %-30s %6.2f  %s\n", f.Label, f.Value, f.ShareText())
	}

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with the risk summary.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, rep *Report) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                       PERSONASHIELD REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Analysis ID:    %s\n", orDash(rep.Dashboard.AnalysisID))
	if rep.Dashboard.Timestamp != "" {
		fmt.Fprintf(sb, "Analyzed:       %s\n", rep.Dashboard.Timestamp)
	}
	fmt.Fprintf(sb, "Generated:      %s\n", rep.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	if rep.Inspection != nil {
		fmt.Fprintf(sb, "Document:       %s (%d bytes)\n", rep.Inspection.Name, rep.Inspection.Size)
	}
	fmt.Fprintf(sb, "Risk Score:     %s\n", scoreText(rep.RiskScore))
	fmt.Fprintf(sb, "Risk Level:     %s\n", LevelLine(rep.RiskLevel, rep.Dashboard.ServerRiskLevel))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeRecon(sb *strings.Builder, items []model.ReconItem) {
	if len(items) == 0 && !w.showEmpty {
		return
	}
	w.section(sb, "RECONNAISSANCE")
	if len(items) == 0 {
		sb.WriteString("  " + view.NoPersonalData + "\n\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(sb, "  [+] %-9s %s\n", item.Category, item.Value)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeBreakdown(sb *strings.Builder, v view.WeightedRiskView) {
	if v.Empty && !w.showEmpty {
		return
	}
	w.section(sb, "SCORE BREAKDOWN")
	if v.Empty {
		sb.WriteString("  No score breakdown\n\n")
		return
	}
	for _, m := range v.Matrix {
		fmt.Fprintf(sb, "  %-32s %7.2f  %5s  [%s]\n", m.Label, m.Value, m.ShareText(), risk.FactorTier(m.Value))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeAttackVectors(sb *strings.Builder, v view.AttackVectorsView) {
	if v.Empty && !w.showEmpty {
		return
	}
	w.section(sb, "ATTACK VECTORS")
	if v.Empty {
		sb.WriteString("  No attack vectors\n\n")
		return
	}
	fmt.Fprintf(sb, "  HIGH:   %d\n", v.Tally.High)
	fmt.Fprintf(sb, "  MEDIUM: %d\n", v.Tally.Medium)
	fmt.Fprintf(sb, "  LOW:    %d\n\n", v.Tally.Low)
	for _, c := range v.Cards {
		fmt.Fprintf(sb, "[%s] %s (%s)\n", severityIndicator(c.Severity), c.Category, c.Label)
		for _, f := range c.Factors {
			fmt.Fprintf(sb, "    - %s\n", f)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeMetrics(sb *strings.Builder, s view.Snapshot) {
	if s.CorrelationDepth.Empty && s.Visibility.Empty && s.Timeline.Empty && !w.showEmpty {
		return
	}
	w.section(sb, "EXPOSURE METRICS")
	if s.CorrelationDepth.Empty {
		sb.WriteString("  Correlation Depth: No data\n")
	} else {
		fmt.Fprintf(sb, "  Correlation Depth: %s  %s\n", s.CorrelationDepth.Display, bar(s.CorrelationDepth.Percent))
	}
	if s.Visibility.Empty {
		sb.WriteString("  Visibility Score:  No data\n")
	} else {
		fmt.Fprintf(sb, "  Visibility Score:  %.1f / 10  %s  %s exposure\n", s.Visibility.Score, bar(s.Visibility.Percent), s.Visibility.Exposure)
	}
	if s.Timeline.Empty {
		sb.WriteString("  Timeline:          No data\n")
	} else {
		fmt.Fprintf(sb, "  Timeline:          %.1f years  %s  phase: %s\n", s.Timeline.Years, bar(s.Timeline.Percent), s.Timeline.CurrentPhase)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writePersona(sb *strings.Builder, s view.Snapshot) {
	if !s.Persona.Empty || w.showEmpty {
		w.section(sb, "PERSONA EXPOSURE")
		if s.Persona.Empty {
			sb.WriteString("  No persona simulation\n\n")
		} else {
			fmt.Fprintf(sb, "  Persona: %s\n\n", s.Persona.Persona)
			sb.WriteString(indent(w.clip(s.Persona.Narrative)))
			sb.WriteString("\n\n")
		}
	}

	if !s.Phishing.Empty || w.showEmpty {
		w.section(sb, "PHISHING SIMULATION")
		if s.Phishing.Empty {
			sb.WriteString("  No phishing simulation\n\n")
		} else {
			fmt.Fprintf(sb, "  From:    %s\n", view.PhishingSender)
			fmt.Fprintf(sb, "  Subject: %s\n\n", s.Phishing.Subject)
			sb.WriteString(indent(w.clip(s.Phishing.Body)))
			sb.WriteString("\n\n")
		}
	}
}

func (w *SimpleWriter) writeThreats(sb *strings.Builder, v view.DigitalTwinView) {
	if v.Empty && !w.showEmpty {
		return
	}
	w.section(sb, "DIGITAL TWIN")
	if v.Empty {
		sb.WriteString("  No digital twin data\n\n")
		return
	}
	if v.Explanation != "" {
		sb.WriteString(indent(w.clip(v.Explanation)))
		sb.WriteString("\n\n")
	}
	for _, t := range v.Threats {
		fmt.Fprintf(sb, "  %d. %s\n", t.Index, t.Title)
		if t.Description != "" {
			fmt.Fprintf(sb, "     %s\n", t.Description)
		}
	}
	sb.WriteString("\n  Hardening checklist:\n")
	for _, item := range v.Checklist {
		fmt.Fprintf(sb, "    [ ] %s\n", item)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeHardening(sb *strings.Builder, v view.HardeningView) {
	if v.Empty && !w.showEmpty {
		return
	}
	w.section(sb, "HARDENING SIMULATION")
	if v.Empty {
		sb.WriteString("  No hardening simulation\n\n")
		return
	}
	fmt.Fprintf(sb, "  Original Score: %s\n", scoreText(v.Original))
	fmt.Fprintf(sb, "  Hardened Score: %s", scoreText(v.Hardened))
	if v.HardenedLevel != "" {
		fmt.Fprintf(sb, " (%s)", v.HardenedLevel)
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  Reduction:      %s\n", scoreText(v.Difference))
	if v.Explanation != "" {
		sb.WriteString("\n")
		sb.WriteString(indent(w.clip(v.Explanation)))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

// writeFindings writes the pre-flight findings grouped by severity.
func (w *SimpleWriter) writeFindings(sb *strings.Builder, rep *Report) {
	if rep.Inspection == nil || (len(rep.Findings()) == 0 && !w.showEmpty) {
		return
	}
	w.section(sb, "DOCUMENT METADATA")
	fmt.Fprintf(sb, "  Fingerprint: %s\n\n", rep.Inspection.Fingerprint)

	for _, sev := range severities {
		findings := rep.FindingsBySeverity(sev)
		if len(findings) == 0 {
			continue
		}
		fmt.Fprintf(sb, "[%s] %s\n", severityIndicator(sev), sev)
		for _, f := range findings {
			fmt.Fprintf(sb, "  * %s\n", f.Title)
			if f.Value != "" {
				fmt.Fprintf(sb, "    Value: %s\n", f.Value)
			}
			if w.verbose && f.Recommendation != "" {
				fmt.Fprintf(sb, "    Recommendation: %s\n", f.Recommendation)
			}
		}
		sb.WriteString("\n")
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by PersonaShield\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}

func (w *SimpleWriter) clip(s string) string {
	if w.verbose {
		return s
	}
	return truncateString(s, narrativePreview)
}

// severities lists the severity levels most severe first.
var severities = []model.Severity{
	model.SeverityCritical,
	model.SeverityHigh,
	model.SeverityMedium,
	model.SeverityLow,
	model.SeverityInfo,
}

// severityIndicator returns a visual indicator for the severity level.
func severityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	case model.SeverityInfo:
		return "i"
	default:
		return "?"
	}
}

// bar draws a 20-cell text progress bar.
func bar(pct float64) string {
	const cells = 20
	filled := int(pct / 100 * cells)
	filled = max(0, min(cells, filled))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", cells-filled) + "]"
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = "  " + l
		}
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
