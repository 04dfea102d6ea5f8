package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nao1215/personashield/internal/view"
)

// Theme holds the colours and styles shared by every model.
type Theme struct {
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Danger    lipgloss.AdaptiveColor
	Warning   lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Panel    lipgloss.Style
	Selected lipgloss.Style
	Muted    lipgloss.Style
	Help     lipgloss.Style
}

// DefaultTheme returns the dark-first theme used by the dashboard.
func DefaultTheme() Theme {
	t := Theme{
		Primary:   lipgloss.AdaptiveColor{Light: "#0369A1", Dark: "#38BDF8"},
		Secondary: lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#94A3B8"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#64748B"},
		Danger:    lipgloss.AdaptiveColor{Light: "#BE123C", Dark: "#F43F5E"},
		Warning:   lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"},
		Success:   lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"},
	}
	t.Title = lipgloss.NewStyle().Bold(true).Foreground(t.Primary)
	t.Subtitle = lipgloss.NewStyle().Italic(true).Foreground(t.Subtext)
	t.Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Secondary).
		Padding(0, 1)
	t.Selected = lipgloss.NewStyle().Bold(true).Foreground(t.Primary)
	t.Muted = lipgloss.NewStyle().Foreground(t.Subtext)
	t.Help = lipgloss.NewStyle().Foreground(t.Subtext).Italic(true)
	return t
}

// ToneColor maps a badge tone to a colour.
func (t Theme) ToneColor(tone view.Tone) lipgloss.AdaptiveColor {
	switch tone {
	case view.ToneDanger:
		return t.Danger
	case view.ToneWarning:
		return t.Warning
	case view.ToneSuccess:
		return t.Success
	default:
		return t.Secondary
	}
}

// Badge renders text in the colour of tone.
func (t Theme) Badge(text string, tone view.Tone) string {
	return lipgloss.NewStyle().Bold(true).Foreground(t.ToneColor(tone)).Render(text)
}
