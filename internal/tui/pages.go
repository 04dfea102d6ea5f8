package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/nao1215/personashield/internal/model"
	"github.com/nao1215/personashield/internal/view"
)

// Empty-state texts.
const (
	emptyRiskGraphs = "No score breakdown in this analysis."
	emptyPersona    = "No persona simulation in this analysis."
	emptyVectors    = "No attack vectors identified."
	emptyPhishing   = "No phishing simulation in this analysis."
	emptyMetric     = "This analysis does not include this metric."
	emptyTwin       = "No digital twin data in this analysis."
	emptyHardening  = "The service did not run a hardening simulation."
)

// meter renders a horizontal bar for pct in [0, 100].
func meter(pct float64, width int, color string) string {
	bar := progress.New(
		progress.WithSolidFill(color),
		progress.WithoutPercentage(),
		progress.WithWidth(max(width, 10)),
	)
	return bar.ViewAs(pct / 100)
}

// renderPage renders one dashboard page of r for a pane of the given width.
func renderPage(page view.Page, r *model.AnalysisResult, opts view.Options, width int, t Theme) string {
	v, err := view.Build(page, r, opts)
	if err != nil {
		return t.Muted.Render(err.Error())
	}

	var body string
	switch v := v.(type) {
	case view.RiskGraphsView:
		body = renderRiskGraphs(v, width, t)
	case view.PersonaView:
		body = renderPersona(v, width, t)
	case view.AttackVectorsView:
		body = renderAttackVectors(v, width, t)
	case view.PhishingView:
		body = renderPhishing(v, width, t)
	case view.CorrelationDepthView:
		body = renderCorrelation(v, width, t)
	case view.VisibilityView:
		body = renderVisibility(v, width, t)
	case view.TimelineView:
		body = renderTimeline(v, width, t)
	case view.WeightedRiskView:
		body = renderWeightedRisk(v, width, t)
	case view.DigitalTwinView:
		body = renderDigitalTwin(v, width, t)
	case view.HardeningView:
		body = renderHardening(v, t)
	}
	return lipgloss.JoinVertical(lipgloss.Left, t.Title.Render(page.Title()), "", body)
}

func renderRiskGraphs(v view.RiskGraphsView, width int, t Theme) string {
	if v.Empty {
		return t.Muted.Render(emptyRiskGraphs)
	}
	labelWidth := 0
	for _, f := range v.Factors {
		labelWidth = max(labelWidth, lipgloss.Width(f.Label))
	}
	lines := make([]string, 0, len(v.Factors))
	for _, f := range v.Factors {
		// Factors are scored out of 25 on the service side.
		pct := min(100, f.Value/25*100)
		lines = append(lines, fmt.Sprintf("%-*s %s %6s %s",
			labelWidth, f.Label,
			meter(pct, width-labelWidth-22, f.Color),
			f.Text,
			t.Badge(string(f.Tier), f.Tone),
		))
	}
	return strings.Join(lines, "\n")
}

func renderPersona(v view.PersonaView, width int, t Theme) string {
	if v.Empty {
		return t.Muted.Render(emptyPersona)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		t.Badge(v.Persona, view.ToneDanger),
		"",
		lipgloss.NewStyle().Width(width).Render(v.Narrative),
	)
}

func renderAttackVectors(v view.AttackVectorsView, width int, t Theme) string {
	if v.Empty {
		return t.Muted.Render(emptyVectors)
	}
	tile := t.Panel.Width(12).Align(lipgloss.Center)
	tiles := lipgloss.JoinHorizontal(lipgloss.Top,
		tile.BorderForeground(t.Danger).Render(fmt.Sprintf("HIGH\n%d", v.Tally.High)),
		tile.BorderForeground(t.Warning).Render(fmt.Sprintf("MEDIUM\n%d", v.Tally.Medium)),
		tile.BorderForeground(t.Success).Render(fmt.Sprintf("LOW\n%d", v.Tally.Low)),
	)

	cards := make([]string, 0, len(v.Cards))
	for _, c := range v.Cards {
		lines := []string{t.Badge(c.Label, c.Tone) + "  " + lipgloss.NewStyle().Bold(true).Render(c.Category)}
		for _, f := range c.Factors {
			lines = append(lines, "  • "+f)
		}
		cards = append(cards, t.Panel.Width(max(width-4, 20)).
			BorderForeground(t.ToneColor(c.Tone)).
			Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, append([]string{tiles}, cards...)...)
}

func renderPhishing(v view.PhishingView, width int, t Theme) string {
	if v.Empty {
		return t.Muted.Render(emptyPhishing)
	}
	header := fmt.Sprintf("From:    %s\nSubject: %s", view.PhishingSender, v.Subject)
	parts := []string{
		t.Panel.Width(max(width-4, 20)).Render(header + "\n\n" + v.Body),
	}
	if v.Disclaimer != "" {
		parts = append(parts, t.Subtitle.Render(v.Disclaimer))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderCorrelation(v view.CorrelationDepthView, width int, t Theme) string {
	if v.Empty {
		return t.Muted.Render(emptyMetric)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Render(v.Display),
		meter(v.Percent, width-4, "#38bdf8"),
		t.Muted.Render(fmt.Sprintf("ring %.0f%% filled (offset %.1f of %.1f)",
			v.Gauge.Filled()*100, v.Gauge.Offset, v.Gauge.Circumference)),
	)
}

func renderVisibility(v view.VisibilityView, width int, t Theme) string {
	if v.Empty {
		return t.Muted.Render(emptyMetric)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("%.1f / 10  %s exposure", v.Score, t.Badge(string(v.Exposure), v.Tone)),
		meter(v.Percent, width-4, "#fbbf24"),
	)
}

func renderTimeline(v view.TimelineView, width int, t Theme) string {
	if v.Empty {
		return t.Muted.Render(emptyMetric)
	}
	phases := make([]string, 0, len(v.Phases))
	for _, p := range v.Phases {
		marker := "○"
		style := t.Muted
		if p.Active {
			marker = "●"
			style = lipgloss.NewStyle()
		}
		if p.Current {
			style = t.Selected
		}
		phases = append(phases, style.Render(fmt.Sprintf("%s %s (%gy)", marker, p.Label, p.Year)))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("%.1f years to full reconstruction, phase %s", v.Years, t.Selected.Render(v.CurrentPhase)),
		meter(v.Percent, width-4, "#818cf8"),
		strings.Join(phases, "   "),
	)
}

func renderWeightedRisk(v view.WeightedRiskView, width int, t Theme) string {
	if v.Empty {
		return t.Muted.Render(emptyRiskGraphs)
	}
	hero := lipgloss.NewStyle().Bold(true).Foreground(t.ToneColor(v.Tone)).Render(v.Hero)
	lines := []string{
		hero + " / 100  " + t.Badge(string(v.Level), v.Tone),
		meter(v.Score, width-4, "#f43f5e"),
		"",
	}
	for i, m := range v.Matrix {
		lines = append(lines, fmt.Sprintf("%2d. %-30s %7.2f %5s", i+1, m.Label, m.Value, m.ShareText()))
	}
	return strings.Join(lines, "\n")
}

func renderDigitalTwin(v view.DigitalTwinView, width int, t Theme) string {
	if v.Empty {
		return t.Muted.Render(emptyTwin)
	}
	text := lipgloss.NewStyle().Width(max(width-4, 20))
	var parts []string
	if v.RiskLevel != "" {
		parts = append(parts, "Risk level: "+t.Badge(v.RiskLevel, v.Tone))
	}
	if v.Explanation != "" {
		parts = append(parts, text.Render(v.Explanation))
	}
	if v.Narrative != "" {
		parts = append(parts, t.Subtitle.Width(max(width-4, 20)).Render(v.Narrative))
	}

	nodes := make([]string, 0, len(v.Entities))
	for _, e := range v.Entities {
		nodes = append(nodes, fmt.Sprintf("[%s · %s]", e.Name, e.Weight))
	}
	parts = append(parts, "", t.Muted.Render(strings.Join(nodes, " ")))

	if len(v.Threats) > 0 {
		parts = append(parts, "", t.Title.Render("Primary threats"))
		for _, th := range v.Threats {
			line := fmt.Sprintf("%d. %s", th.Index, th.Title)
			if th.Description != "" {
				line += t.Muted.Render(" " + th.Description)
			}
			parts = append(parts, line)
		}
	}

	parts = append(parts, "", t.Title.Render("Hardening checklist"))
	for _, item := range v.Checklist {
		parts = append(parts, "[ ] "+item)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderHardening(v view.HardeningView, t Theme) string {
	if v.Empty {
		return t.Muted.Render(emptyHardening)
	}
	lines := []string{
		fmt.Sprintf("Original score: %s", v.Original),
		fmt.Sprintf("Hardened score: %s %s", v.Hardened, t.Badge(string(v.HardenedLevel), view.ToneSuccess)),
		fmt.Sprintf("Reduction:      %s", v.Difference),
	}
	if v.Explanation != "" {
		lines = append(lines, "", v.Explanation)
	}
	return strings.Join(lines, "\n")
}
