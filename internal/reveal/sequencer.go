package reveal

import (
	"math"
	"time"

	"github.com/nao1215/personashield/internal/model"
)

// Config holds the tick intervals of each stage and the impact step divisor.
type Config struct {
	ReconInterval     time.Duration
	NarrativeInterval time.Duration
	BodyInterval      time.Duration
	CounterInterval   time.Duration

	// ImpactDivisor is N in step = ceil(riskScore / N).
	ImpactDivisor int
}

// DefaultConfig returns the standard pacing: one entity every 1.5s, one
// narrative character every 30ms, one email character every 20ms and a
// counter step every 50ms reaching the score in about 30 steps.
func DefaultConfig() Config {
	return Config{
		ReconInterval:     1500 * time.Millisecond,
		NarrativeInterval: 30 * time.Millisecond,
		BodyInterval:      20 * time.Millisecond,
		CounterInterval:   50 * time.Millisecond,
		ImpactDivisor:     30,
	}
}

// Content is what the walkthrough reveals.
type Content struct {
	Recon     []model.ReconItem
	Narrative string
	Body      string
	RiskScore float64
}

// ContentFrom extracts the walkthrough content from an analysis. Missing
// parts are empty and a missing risk score counts as zero.
func ContentFrom(r *model.AnalysisResult) Content {
	p, _ := r.Phishing()
	return Content{
		Recon:     model.BuildReconList(r.Entities()),
		Narrative: r.Narrative(),
		Body:      p.Body,
		RiskScore: r.RiskScore().Or(0),
	}
}

// Token identifies one scheduled reveal task. Every stage change, open and
// close issues a new token, so ticks carrying an older token are stale.
type Token uint64

// Task tells the host what to schedule next. When Active is false nothing
// needs to be scheduled.
type Task struct {
	Token    Token
	Interval time.Duration
	Active   bool
}

// State is a snapshot of the walkthrough progress.
type State struct {
	Stage Stage

	// Counters of the active stage. Narrative and Body count runes.
	Recon     int
	Narrative int
	Body      int
	Score     float64

	Skip bool
}

// Sequencer is the walkthrough state machine. It never sleeps or starts
// goroutines: the host schedules each returned Task and feeds the tick back
// through Tick with the task's token. A Sequencer is not safe for
// concurrent use.
type Sequencer struct {
	cfg       Config
	content   Content
	narrative []rune
	body      []rune

	state  State
	open   bool
	token  Token
	active bool
}

// New returns a closed Sequencer over content.
func New(content Content, cfg Config) *Sequencer {
	if cfg.ImpactDivisor <= 0 {
		cfg.ImpactDivisor = DefaultConfig().ImpactDivisor
	}
	return &Sequencer{
		cfg:       cfg,
		content:   content,
		narrative: []rune(content.Narrative),
		body:      []rune(content.Body),
	}
}

// Open resets to Reconnaissance with every counter at zero and skip
// cleared, and starts the first stage.
func (s *Sequencer) Open() Task {
	s.open = true
	s.state = State{Stage: StageReconnaissance}
	return s.enter()
}

// Close stops the walkthrough. Pending ticks become stale.
func (s *Sequencer) Close() {
	s.open = false
	s.active = false
	s.token++
}

// IsOpen reports whether the walkthrough is open.
func (s *Sequencer) IsOpen() bool {
	return s.open
}

// Next advances one stage. At Impact it closes the walkthrough instead and
// reports closed == true.
func (s *Sequencer) Next() (task Task, closed bool) {
	if !s.open {
		return Task{}, true
	}
	if s.state.Stage == StageImpact {
		s.Close()
		return Task{}, true
	}
	s.state.Stage++
	return s.enter(), false
}

// Back retreats one stage. It is a no-op at Reconnaissance, where the
// running task, if any, is returned unchanged.
func (s *Sequencer) Back() Task {
	if !s.open {
		return Task{}
	}
	if s.state.Stage == StageReconnaissance {
		return s.current()
	}
	s.state.Stage--
	return s.enter()
}

// Skip makes the running stage jump to its end on its next tick. The flag
// stays set, so later stages complete as soon as they are entered.
func (s *Sequencer) Skip() {
	if s.open {
		s.state.Skip = true
	}
}

// Tick advances the active stage by one step. A tick with a stale token, or
// one arriving after the stage has finished, changes nothing and reports
// false. Otherwise it reports whether another tick should be scheduled.
func (s *Sequencer) Tick(token Token) (Task, bool) {
	if !s.open || !s.active || token != s.token {
		return Task{}, false
	}

	if s.state.Skip {
		s.complete()
	} else {
		s.step()
	}

	if s.stageDone() {
		s.active = false
		return Task{}, false
	}
	return s.current(), true
}

// State returns a snapshot of the progress.
func (s *Sequencer) State() State {
	return s.state
}

// Content returns the content being revealed.
func (s *Sequencer) Content() Content {
	return s.content
}

// Done reports whether the active stage shows its terminal value.
func (s *Sequencer) Done() bool {
	return s.stageDone()
}

// VisibleRecon returns the entities revealed so far.
func (s *Sequencer) VisibleRecon() []model.ReconItem {
	return s.content.Recon[:s.state.Recon]
}

// VisibleNarrative returns the narrative typed so far.
func (s *Sequencer) VisibleNarrative() string {
	return string(s.narrative[:s.state.Narrative])
}

// VisibleBody returns the email body typed so far.
func (s *Sequencer) VisibleBody() string {
	return string(s.body[:s.state.Body])
}

// enter resets the counters for the current stage and schedules its task.
func (s *Sequencer) enter() Task {
	s.token++
	s.state.Recon, s.state.Narrative, s.state.Body, s.state.Score = 0, 0, 0, 0

	if s.state.Skip {
		s.complete()
	}
	if s.stageDone() {
		s.active = false
		return Task{}
	}
	s.active = true
	return s.current()
}

func (s *Sequencer) current() Task {
	if !s.active {
		return Task{}
	}
	return Task{Token: s.token, Interval: s.interval(), Active: true}
}

func (s *Sequencer) interval() time.Duration {
	switch s.state.Stage {
	case StageReconnaissance:
		return s.cfg.ReconInterval
	case StageProfiling:
		return s.cfg.NarrativeInterval
	case StageWeaponization:
		return s.cfg.BodyInterval
	default:
		return s.cfg.CounterInterval
	}
}

func (s *Sequencer) target() float64 {
	if s.content.RiskScore < 0 {
		return 0
	}
	return s.content.RiskScore
}

func (s *Sequencer) step() {
	switch s.state.Stage {
	case StageReconnaissance:
		s.state.Recon = min(s.state.Recon+1, len(s.content.Recon))
	case StageProfiling:
		s.state.Narrative = min(s.state.Narrative+1, len(s.narrative))
	case StageWeaponization:
		s.state.Body = min(s.state.Body+1, len(s.body))
	case StageImpact:
		target := s.target()
		inc := math.Ceil(target / float64(s.cfg.ImpactDivisor))
		s.state.Score = math.Min(s.state.Score+inc, target)
	}
}

func (s *Sequencer) complete() {
	switch s.state.Stage {
	case StageReconnaissance:
		s.state.Recon = len(s.content.Recon)
	case StageProfiling:
		s.state.Narrative = len(s.narrative)
	case StageWeaponization:
		s.state.Body = len(s.body)
	case StageImpact:
		s.state.Score = s.target()
	}
}

func (s *Sequencer) stageDone() bool {
	switch s.state.Stage {
	case StageReconnaissance:
		return s.state.Recon >= len(s.content.Recon)
	case StageProfiling:
		return s.state.Narrative >= len(s.narrative)
	case StageWeaponization:
		return s.state.Body >= len(s.body)
	default:
		return s.state.Score >= s.target()
	}
}
