package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/personashield/internal/model"
	"github.com/nao1215/personashield/internal/risk"
	"github.com/nao1215/personashield/internal/view"
)

// MarkdownWriter outputs reports in GitHub Flavored Markdown for sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(rep *Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, rep)
	w.writeRecon(md, rep.Dashboard.Recon)
	w.writeBreakdown(md, rep.Dashboard.WeightedRisk)
	w.writeAttackVectors(md, rep.Dashboard.AttackVectors)
	w.writeMetrics(md, rep.Dashboard)
	w.writeNarratives(md, rep.Dashboard)
	w.writeDigitalTwin(md, rep.Dashboard.DigitalTwin)
	w.writeHardening(md, rep.Dashboard.Hardening)
	w.writeFindings(md, rep)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs the summary as a single table.
func (w *MarkdownWriter) WriteSummary(s *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H2("Analysis " + orDash(s.AnalysisID))
	md.PlainText("")
	rows := [][]string{
		{"Timestamp", orDash(s.Timestamp)},
		{"Risk Score", scoreText(s.RiskScore)},
		{"Risk Level", LevelLine(s.RiskLevel, s.ServerRiskLevel)},
		{"Attack Vectors", fmt.Sprintf("%d high / %d medium / %d low", s.Tally.High, s.Tally.Medium, s.Tally.Low)},
		{"Entities", strconv.Itoa(s.Entities)},
	}
	for _, f := range s.TopFactors {
		rows = append(rows, []string{f.Label, fmt.Sprintf("%.2f (%s)", f.Value, f.ShareText())})
	}
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})

	return len(md.String()), md.Build()
}

// writeHeader writes the title, the property table and a level alert.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, rep *Report) {
	md.H1("PersonaShield Report")
	md.PlainText("")

	rows := [][]string{
		{"Analysis ID", "`" + orDash(rep.Dashboard.AnalysisID) + "`"},
		{"Analyzed", orDash(rep.Dashboard.Timestamp)},
		{"Generated", rep.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		{"Risk Score", scoreText(rep.RiskScore)},
		{"Risk Level", LevelLine(rep.RiskLevel, rep.Dashboard.ServerRiskLevel)},
	}
	if rep.Inspection != nil {
		rows = append(rows,
			[]string{"Document", rep.Inspection.Name},
			[]string{"Fingerprint", "`" + rep.Inspection.Fingerprint + "`"},
		)
	}
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")

	w.writeAlert(md, rep)
}

// writeAlert writes an alert matching the dashboard risk level.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, rep *Report) {
	switch rep.RiskLevel {
	case risk.LevelCritical:
		md.Cautionf("Critical exposure: risk score %s. The resume gives an attacker enough to build a convincing profile.", rep.RiskScore)
	case risk.LevelHigh:
		md.Warningf("High exposure: risk score %s. Several identifying details can be correlated.", rep.RiskScore)
	case risk.LevelModerate:
		md.Importantf("Moderate exposure: risk score %s.", rep.RiskScore)
	case risk.LevelLow:
		md.Note("Low exposure. Few identifying details were found.")
	default:
		md.Tip("The analysis carries no risk score.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeRecon(md *markdown.Markdown, items []model.ReconItem) {
	md.H2("Reconnaissance")
	md.PlainText("")
	if len(items) == 0 {
		md.PlainText(view.NoPersonalData + ".")
		md.PlainText("")
		return
	}
	rows := make([][]string, len(items))
	for i, item := range items {
		rows[i] = []string{string(item.Category), truncateString(item.Value, 60)}
	}
	md.Table(markdown.TableSet{Header: []string{"Category", "Value"}, Rows: rows})
	md.PlainText("")
}

// writeBreakdown writes the ranked score breakdown with a pie chart.
func (w *MarkdownWriter) writeBreakdown(md *markdown.Markdown, v view.WeightedRiskView) {
	md.H2("Score Breakdown")
	md.PlainText("")
	if v.Empty {
		md.PlainText("No score breakdown.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(v.Matrix))
	for i, m := range v.Matrix {
		rows[i] = []string{m.Label, fmt.Sprintf("%.2f", m.Value), m.ShareText(), string(risk.FactorTier(m.Value))}
	}
	md.Table(markdown.TableSet{Header: []string{"Factor", "Value", "Share", "Tier"}, Rows: rows})
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Risk Score Breakdown"),
		piechart.WithShowData(true),
	)
	plotted := 0
	for _, m := range v.Matrix {
		if m.Value <= 0 {
			continue
		}
		chart.LabelAndIntValue(m.Label, uint64(math.Round(m.Value)))
		plotted++
	}
	if plotted > 0 {
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeAttackVectors(md *markdown.Markdown, v view.AttackVectorsView) {
	md.H2("Attack Vectors")
	md.PlainText("")
	if v.Empty {
		md.PlainText("No attack vectors.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows: [][]string{
			{"🔴 High", strconv.Itoa(v.Tally.High)},
			{"🟡 Medium", strconv.Itoa(v.Tally.Medium)},
			{"🔵 Low", strconv.Itoa(v.Tally.Low)},
		},
	})
	md.PlainText("")

	rows := make([][]string, len(v.Cards))
	for i, c := range v.Cards {
		factors := "-"
		if len(c.Factors) > 0 {
			factors = truncateString(strings.Join(c.Factors, "; "), 80)
		}
		rows[i] = []string{c.Category, c.Label, factors}
	}
	md.Table(markdown.TableSet{Header: []string{"Vector", "Severity", "Contributing Factors"}, Rows: rows})
	md.PlainText("")
}

func (w *MarkdownWriter) writeMetrics(md *markdown.Markdown, s view.Snapshot) {
	md.H2("Exposure Metrics")
	md.PlainText("")

	depth, visibility, timeline := "No data", "No data", "No data"
	if !s.CorrelationDepth.Empty {
		depth = fmt.Sprintf("%s (%.0f%%)", s.CorrelationDepth.Display, s.CorrelationDepth.Percent)
	}
	if !s.Visibility.Empty {
		visibility = fmt.Sprintf("%.1f / 10 (%s exposure)", s.Visibility.Score, s.Visibility.Exposure)
	}
	if !s.Timeline.Empty {
		timeline = fmt.Sprintf("%.1f years (%s)", s.Timeline.Years, s.Timeline.CurrentPhase)
	}
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Correlation Depth", depth},
			{"Visibility Score", visibility},
			{"Reconstruction Timeline", timeline},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeNarratives(md *markdown.Markdown, s view.Snapshot) {
	if !s.Persona.Empty {
		md.H2("Persona Exposure: " + s.Persona.Persona)
		md.PlainText("")
		md.PlainText(s.Persona.Narrative)
		md.PlainText("")
	}
	if !s.Phishing.Empty {
		md.H2("Phishing Simulation")
		md.PlainText("")
		md.PlainTextf("**From:** %s  ", view.PhishingSender)
		md.PlainTextf("**Subject:** %s", s.Phishing.Subject)
		md.PlainText("")
		md.Details("Email body", s.Phishing.Body)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeDigitalTwin(md *markdown.Markdown, v view.DigitalTwinView) {
	if v.Empty {
		return
	}
	md.H2("Digital Twin")
	md.PlainText("")
	if v.Explanation != "" {
		md.PlainText(v.Explanation)
		md.PlainText("")
	}
	if len(v.Threats) > 0 {
		md.PlainText("### Primary Threats")
		md.PlainText("")
		items := make([]string, len(v.Threats))
		for i, t := range v.Threats {
			items[i] = fmt.Sprintf("**%d. %s**", t.Index, t.Title)
			if t.Description != "" {
				items[i] += " " + t.Description
			}
		}
		md.BulletList(items...)
		md.PlainText("")
	}
	md.PlainText("### Hardening Checklist")
	md.PlainText("")
	for _, item := range v.Checklist {
		md.PlainTextf("- [ ] %s", item)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeHardening(md *markdown.Markdown, v view.HardeningView) {
	if v.Empty {
		return
	}
	md.H2("Hardening Simulation")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Original", "Hardened", "Reduction"},
		Rows:   [][]string{{scoreText(v.Original), scoreText(v.Hardened), scoreText(v.Difference)}},
	})
	md.PlainText("")
	if v.Explanation != "" {
		md.PlainText(v.Explanation)
		md.PlainText("")
	}
}

// writeFindings writes the pre-flight findings grouped by severity.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, rep *Report) {
	if rep.Inspection == nil {
		return
	}
	md.H2("Document Metadata")
	md.PlainText("")
	if len(rep.Findings()) == 0 {
		md.PlainText("No metadata findings.")
		md.PlainText("")
		return
	}

	headers := map[model.Severity]string{
		model.SeverityCritical: "### 🔴 Critical",
		model.SeverityHigh:     "### 🟠 High",
		model.SeverityMedium:   "### 🟡 Medium",
		model.SeverityLow:      "### 🔵 Low",
		model.SeverityInfo:     "### ⚪ Info",
	}
	for _, sev := range severities {
		findings := rep.FindingsBySeverity(sev)
		if len(findings) == 0 {
			continue
		}
		md.PlainText(headers[sev])
		md.PlainText("")

		rows := make([][]string, len(findings))
		for i, f := range findings {
			rows[i] = []string{f.Title, truncateString(orDash(f.Value), 50), truncateString(orDash(f.Recommendation), 60)}
		}
		md.Table(markdown.TableSet{Header: []string{"Title", "Value", "Recommendation"}, Rows: rows})
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [PersonaShield](https://github.com/nao1215/personashield)*")
}

// truncateString truncates a string to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
