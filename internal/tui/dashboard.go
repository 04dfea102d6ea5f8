package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nao1215/personashield/internal/model"
	"github.com/nao1215/personashield/internal/reveal"
	"github.com/nao1215/personashield/internal/view"
)

const (
	sidebarWidth  = 22
	defaultWidth  = 100
	defaultHeight = 30
)

// AnalysisSource is the part of the analysis store the dashboard uses.
type AnalysisSource interface {
	Current() (*model.AnalysisResult, bool)
	History() []*model.AnalysisResult
	Restore(index int) bool
}

// Dashboard is the main terminal dashboard.
type Dashboard struct {
	source    AnalysisSource
	analysis  *model.AnalysisResult
	historyAt int

	page     int
	opts     view.Options
	revealer reveal.Config
	theme    Theme

	content viewport.Model
	width   int
	height  int

	sim *Simulation
	// user is shown in the header.
	user string
}

// DashboardOption configures a Dashboard.
type DashboardOption func(*Dashboard)

// WithViewOptions sets the view computation options.
func WithViewOptions(opts view.Options) DashboardOption {
	return func(d *Dashboard) {
		d.opts = opts
	}
}

// WithRevealConfig sets the attack simulation pacing.
func WithRevealConfig(cfg reveal.Config) DashboardOption {
	return func(d *Dashboard) {
		d.revealer = cfg
	}
}

// WithUser sets the signed-in user shown in the header.
func WithUser(name string) DashboardOption {
	return func(d *Dashboard) {
		d.user = name
	}
}

// NewDashboard creates a dashboard over the current analysis of source.
func NewDashboard(source AnalysisSource, opts ...DashboardOption) Dashboard {
	d := Dashboard{
		source:   source,
		opts:     view.DefaultOptions(),
		revealer: reveal.DefaultConfig(),
		theme:    DefaultTheme(),
		width:    defaultWidth,
		height:   defaultHeight,
	}
	for _, opt := range opts {
		opt(&d)
	}
	d.analysis, _ = source.Current()
	d.historyAt = d.currentIndex()
	d.content = viewport.New(d.paneWidth(), d.paneHeight())
	d.refresh()
	return d
}

// Init implements tea.Model.
func (d Dashboard) Init() tea.Cmd {
	return nil
}

// Page returns the selected page.
func (d Dashboard) Page() view.Page {
	return view.Pages[d.page].Page
}

// Analysis returns the analysis on screen.
func (d Dashboard) Analysis() *model.AnalysisResult {
	return d.analysis
}

// SimulationOpen reports whether the attack simulation modal is shown.
func (d Dashboard) SimulationOpen() bool {
	return d.sim != nil && !d.sim.Closed()
}

// Update implements tea.Model.
func (d Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		d.width, d.height = ws.Width, ws.Height
		d.content.Width = d.paneWidth()
		d.content.Height = d.paneHeight()
		d.refresh()
		if d.sim != nil {
			d.sim.Update(msg)
		}
		return d, nil
	}

	if d.SimulationOpen() {
		_, cmd := d.sim.Update(msg)
		if d.sim.Closed() {
			d.sim = nil
		}
		return d, cmd
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "q":
			return d, tea.Quit
		case "down", "j", "tab":
			d.page = (d.page + 1) % len(view.Pages)
			d.refresh()
			return d, nil
		case "up", "k", "shift+tab":
			d.page = (d.page - 1 + len(view.Pages)) % len(view.Pages)
			d.refresh()
			return d, nil
		case "a":
			if d.analysis == nil {
				return d, nil
			}
			d.sim = NewSimulation(d.analysis, d.revealer, d.theme)
			return d, d.sim.Init()
		case "[":
			return d, d.restore(d.historyAt - 1)
		case "]":
			return d, d.restore(d.historyAt + 1)
		}
	}

	var cmd tea.Cmd
	d.content, cmd = d.content.Update(msg)
	return d, cmd
}

// restore switches the dashboard to history entry index.
func (d *Dashboard) restore(index int) tea.Cmd {
	if index < 0 || !d.source.Restore(index) {
		return nil
	}
	d.analysis, _ = d.source.Current()
	d.historyAt = index
	d.refresh()
	return nil
}

// currentIndex locates the current analysis in the history.
func (d Dashboard) currentIndex() int {
	history := d.source.History()
	for i := len(history) - 1; i >= 0; i-- {
		if history[i] == d.analysis {
			return i
		}
	}
	return len(history) - 1
}

func (d Dashboard) paneWidth() int {
	return max(d.width-sidebarWidth-4, 20)
}

func (d Dashboard) paneHeight() int {
	return max(d.height-4, 5)
}

func (d *Dashboard) refresh() {
	if d.analysis == nil {
		d.content.SetContent(d.theme.Muted.Render("No analysis yet. Upload a resume with `personashield upload <file.pdf>`."))
		return
	}
	d.content.SetContent(renderPage(d.Page(), d.analysis, d.opts, d.paneWidth()-2, d.theme))
	d.content.GotoTop()
}

// View implements tea.Model.
func (d Dashboard) View() string {
	if d.SimulationOpen() {
		return lipgloss.Place(d.width, d.height, lipgloss.Center, lipgloss.Center, d.sim.View())
	}

	header := d.theme.Title.Render("PersonaShield")
	if d.analysis != nil {
		header += d.theme.Muted.Render(fmt.Sprintf("  analysis %s · %d/%d",
			orDash(d.analysis.ID()), d.historyAt+1, len(d.source.History())))
	}
	if d.user != "" {
		header += d.theme.Muted.Render("  · " + d.user)
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, d.sidebar(), d.theme.Panel.Render(d.content.View()))
	help := d.theme.Help.Render("↑/↓ page · pgup/pgdn scroll · a attack simulation · [/] history · q quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, body, help)
}

func (d Dashboard) sidebar() string {
	lines := make([]string, len(view.Pages))
	for i, p := range view.Pages {
		if i == d.page {
			lines[i] = d.theme.Selected.Render("› " + p.Title)
		} else {
			lines[i] = "  " + p.Title
		}
	}
	return d.theme.Panel.Width(sidebarWidth).Render(strings.Join(lines, "\n"))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
