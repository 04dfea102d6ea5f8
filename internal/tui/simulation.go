package tui

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nao1215/personashield/internal/model"
	"github.com/nao1215/personashield/internal/reveal"
	"github.com/nao1215/personashield/internal/view"
)

const simulationWidth = 72

// simulationIDs numbers Simulation instances. Tokens restart with every
// Sequencer, so a tick is matched on both the instance and the token.
var simulationIDs atomic.Uint64

// tickMsg is one scheduled reveal step. It carries the simulation that
// scheduled it and the token of its task.
type tickMsg struct {
	sim   uint64
	token reveal.Token
}

// schedule turns a reveal task into a bubbletea timer.
func (s *Simulation) schedule(task reveal.Task) tea.Cmd {
	if !task.Active {
		return nil
	}
	id, token := s.id, task.Token
	return tea.Tick(task.Interval, func(time.Time) tea.Msg {
		return tickMsg{sim: id, token: token}
	})
}

// Simulation is the attack walkthrough modal.
type Simulation struct {
	id      uint64
	seq     *reveal.Sequencer
	impact  view.ImpactView
	subject string
	theme   Theme
	width   int

	// standalone makes closing the modal quit the program.
	standalone bool
	closed     bool
	// failed is set when rendering panicked; the modal then only offers
	// to close.
	failed bool
}

// NewSimulation creates a closed walkthrough over r. Init opens it.
func NewSimulation(r *model.AnalysisResult, cfg reveal.Config, theme Theme) *Simulation {
	return &Simulation{
		id:      simulationIDs.Add(1),
		seq:     reveal.New(reveal.ContentFrom(r), cfg),
		impact:  view.Impact(r),
		subject: view.EmailSubject(r),
		theme:   theme,
		width:   simulationWidth,
	}
}

// Standalone makes the modal quit the program when it closes.
func (s *Simulation) Standalone() *Simulation {
	s.standalone = true
	return s
}

// Init opens the walkthrough at Reconnaissance.
func (s *Simulation) Init() tea.Cmd {
	s.closed = false
	s.failed = false
	return s.schedule(s.seq.Open())
}

// Closed reports whether the modal was dismissed.
func (s *Simulation) Closed() bool {
	return s.closed
}

// State returns the walkthrough progress.
func (s *Simulation) State() reveal.State {
	return s.seq.State()
}

// Update handles ticks and key presses.
func (s *Simulation) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if s.closed {
		return s, nil
	}

	switch msg := msg.(type) {
	case tickMsg:
		if msg.sim != s.id {
			return s, nil
		}
		task, _ := s.seq.Tick(msg.token)
		return s, s.schedule(task)

	case tea.WindowSizeMsg:
		s.width = min(simulationWidth, max(msg.Width-4, 30))
		return s, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			s.close()
			return s, tea.Quit
		}
		if s.failed {
			switch msg.String() {
			case "esc", "q", "enter":
				return s, s.close()
			}
			return s, nil
		}
		switch msg.String() {
		case "esc", "q":
			return s, s.close()
		case "right", "l", "n", "enter":
			task, closed := s.seq.Next()
			if closed {
				return s, s.close()
			}
			return s, s.schedule(task)
		case "left", "h", "b":
			before := s.seq.State().Stage
			task := s.seq.Back()
			if s.seq.State().Stage == before {
				// Already at the first stage; its tick is still pending.
				return s, nil
			}
			return s, s.schedule(task)
		case "s":
			s.seq.Skip()
			return s, nil
		}
	}
	return s, nil
}

func (s *Simulation) close() tea.Cmd {
	if s.seq != nil {
		s.seq.Close()
	}
	s.closed = true
	if s.standalone {
		return tea.Quit
	}
	return nil
}

// View renders the active stage. A rendering failure is contained here and
// replaced by the unavailable notice.
func (s *Simulation) View() (out string) {
	if s.closed {
		return ""
	}
	if s.failed {
		return s.unavailable()
	}
	defer func() {
		if rec := recover(); rec != nil {
			s.failed = true
			out = s.unavailable()
		}
	}()
	return s.render()
}

func (s *Simulation) unavailable() string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		s.theme.Badge(view.SimulationUnavailable, view.ToneWarning),
		"",
		s.theme.Help.Render("enter/esc close"),
	)
	return s.theme.Panel.Width(s.width).Render(body)
}

func (s *Simulation) render() string {
	st := s.seq.State()
	header := lipgloss.JoinVertical(lipgloss.Left,
		s.theme.Title.Render(fmt.Sprintf("Stage %d/%d · %s", int(st.Stage)+1, reveal.StageCount, st.Stage)),
		s.theme.Subtitle.Render(st.Stage.Tagline()),
		s.steps(st.Stage),
	)

	var body string
	switch st.Stage {
	case reveal.StageReconnaissance:
		body = s.renderRecon()
	case reveal.StageProfiling:
		body = s.renderProfiling()
	case reveal.StageWeaponization:
		body = s.renderWeaponization()
	case reveal.StageImpact:
		body = s.renderImpact(st)
	}

	next := "next"
	if st.Stage == reveal.StageImpact {
		next = "finish"
	}
	help := s.theme.Help.Render(fmt.Sprintf("←/b back · →/enter %s · s skip · esc close", next))

	return s.theme.Panel.Width(s.width).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", help),
	)
}

func (s *Simulation) steps(active reveal.Stage) string {
	parts := make([]string, reveal.StageCount)
	for i := range reveal.StageCount {
		stage := reveal.Stage(i)
		style := s.theme.Muted
		if stage == active {
			style = s.theme.Selected
		}
		parts[i] = style.Render(stage.String())
	}
	return strings.Join(parts, s.theme.Muted.Render(" › "))
}

func (s *Simulation) cursor() string {
	if s.seq.Done() {
		return ""
	}
	return "▌"
}

func (s *Simulation) renderRecon() string {
	items := s.seq.VisibleRecon()
	if len(s.seq.Content().Recon) == 0 {
		return s.theme.Muted.Render(view.NoPersonalData)
	}
	lines := make([]string, 0, len(items)+1)
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s %s",
			s.theme.Badge(fmt.Sprintf("%-8s", item.Category), view.ToneWarning), item.Value))
	}
	if !s.seq.Done() {
		lines = append(lines, s.theme.Muted.Render("scanning..."))
	}
	return strings.Join(lines, "\n")
}

func (s *Simulation) renderProfiling() string {
	text := lipgloss.NewStyle().Width(s.width - 4)
	return text.Render(s.seq.VisibleNarrative() + s.cursor())
}

func (s *Simulation) renderWeaponization() string {
	header := fmt.Sprintf("From:    %s\nSubject: %s", view.PhishingSender, s.subject)
	body := lipgloss.NewStyle().Width(s.width - 8).Render(s.seq.VisibleBody() + s.cursor())
	return s.theme.Panel.BorderForeground(s.theme.Danger).Render(header + "\n\n" + body)
}

func (s *Simulation) renderImpact(st reveal.State) string {
	if !s.impact.HasScore {
		return s.theme.Muted.Render(view.NoRiskData)
	}
	bar := progress.New(
		progress.WithSolidFill("#f43f5e"),
		progress.WithoutPercentage(),
		progress.WithWidth(s.width-8),
	)
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(s.theme.Danger).
			Render(fmt.Sprintf("%s / 100", model.Num(st.Score))),
		bar.ViewAs(st.Score / 100),
	}
	if s.impact.Warning != "" {
		lines = append(lines, "", lipgloss.NewStyle().Width(s.width-4).Render(s.impact.Warning))
	}
	return strings.Join(lines, "\n")
}
