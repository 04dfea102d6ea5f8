package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nao1215/personashield/internal/client"
	"github.com/nao1215/personashield/internal/ingest"
	"github.com/nao1215/personashield/internal/view"
)

// IngestFunc ingests one document.
type IngestFunc func(ctx context.Context, path string) (*ingest.Job, error)

type progressTickMsg struct{}

type uploadDoneMsg struct {
	job *ingest.Job
	err error
}

// Upload shows the progress of a single document upload and quits when it
// finishes.
type Upload struct {
	ctx    context.Context
	path   string
	ingest IngestFunc
	theme  Theme

	spinner  spinner.Model
	bar      progress.Model
	progress ingest.Progress

	job  *ingest.Job
	err  error
	done bool
}

// NewUpload creates the upload progress model. The upload starts in Init.
func NewUpload(ctx context.Context, path string, fn IngestFunc) Upload {
	theme := DefaultTheme()
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(theme.Primary)
	return Upload{
		ctx:      ctx,
		path:     path,
		ingest:   fn,
		theme:    theme,
		spinner:  sp,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		progress: ingest.NewProgress(),
	}
}

// Init starts the upload, the spinner and the progress timer.
func (u Upload) Init() tea.Cmd {
	ctx, path, fn := u.ctx, u.path, u.ingest
	run := func() tea.Msg {
		job, err := fn(ctx, path)
		return uploadDoneMsg{job: job, err: err}
	}
	return tea.Batch(run, u.spinner.Tick, progressTick())
}

func progressTick() tea.Cmd {
	return tea.Tick(ingest.ProgressInterval, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}

// Result returns the finished job and its error.
func (u Upload) Result() (*ingest.Job, error) {
	return u.job, u.err
}

// Done reports whether the upload finished.
func (u Upload) Done() bool {
	return u.done
}

// Percent returns the displayed completion.
func (u Upload) Percent() int {
	return u.progress.Percent()
}

// Update implements tea.Model.
func (u Upload) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case uploadDoneMsg:
		u.job, u.err, u.done = msg.job, msg.err, true
		u.progress = u.progress.Complete()
		return u, tea.Quit

	case progressTickMsg:
		if u.done {
			return u, nil
		}
		u.progress = u.progress.Tick()
		return u, progressTick()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return u, tea.Quit
		}

	case spinner.TickMsg:
		if u.done {
			return u, nil
		}
		var cmd tea.Cmd
		u.spinner, cmd = u.spinner.Update(msg)
		return u, cmd
	}
	return u, nil
}

// View implements tea.Model.
func (u Upload) View() string {
	name := u.path
	if u.job != nil {
		name = u.job.Name
	}
	status := u.spinner.View() + " Analyzing " + name
	if u.done {
		if u.err != nil {
			status = u.theme.Badge("✗ "+client.FailureMessage, view.ToneDanger)
		} else {
			status = u.theme.Badge("✓ Analysis complete", view.ToneSuccess)
		}
	}
	return fmt.Sprintf("%s\n%s\n", status, u.bar.ViewAs(u.progress.Fraction()))
}
