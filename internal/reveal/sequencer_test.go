package reveal

import (
	"testing"
	"time"

	"github.com/nao1215/personashield/internal/model"
)

func testContent() Content {
	return Content{
		Recon: []model.ReconItem{
			{Category: model.ReconEmail, Value: "a@x.io"},
			{Category: model.ReconSkill, Value: "Go"},
			{Category: model.ReconCompany, Value: "Acme"},
		},
		Narrative: "héllo",
		Body:      "Dear user",
		RiskScore: 82,
	}
}

// drain ticks until the sequencer stops and returns the number of ticks.
func drain(t *testing.T, s *Sequencer, task Task) int {
	t.Helper()
	ticks := 0
	for task.Active {
		var more bool
		task, more = s.Tick(task.Token)
		ticks++
		if !more {
			break
		}
		if ticks > 10000 {
			t.Fatal("sequencer never finished")
		}
	}
	return ticks
}

func TestOpenResets(t *testing.T) {
	t.Parallel()

	s := New(testContent(), DefaultConfig())
	task := s.Open()
	drain(t, s, task)
	s.Skip()
	s.Next()
	s.Next()

	task = s.Open()
	got := s.State()
	if got != (State{Stage: StageReconnaissance}) {
		t.Errorf("Open left state %+v", got)
	}
	if !task.Active || task.Interval != 1500*time.Millisecond {
		t.Errorf("unexpected task %+v", task)
	}
}

func TestReconnaissance(t *testing.T) {
	t.Parallel()

	s := New(testContent(), DefaultConfig())
	task := s.Open()

	for i := 1; i <= 3; i++ {
		var more bool
		task, more = s.Tick(task.Token)
		if s.State().Recon != i {
			t.Fatalf("after tick %d revealed %d entities", i, s.State().Recon)
		}
		if more != (i < 3) {
			t.Errorf("tick %d more = %v", i, more)
		}
	}
	if got := s.VisibleRecon(); len(got) != 3 || got[2].Value != "Acme" {
		t.Errorf("unexpected visible recon %v", got)
	}
	if !s.Done() {
		t.Error("stage should be done")
	}
}

func TestTypewriterCountsRunes(t *testing.T) {
	t.Parallel()

	s := New(testContent(), DefaultConfig())
	s.Open()
	task, _ := s.Next()
	if task.Interval != 30*time.Millisecond {
		t.Errorf("narrative interval = %v", task.Interval)
	}

	task, _ = s.Tick(task.Token)
	task, _ = s.Tick(task.Token)
	if got := s.VisibleNarrative(); got != "hé" {
		t.Errorf("VisibleNarrative() = %q, expected %q", got, "hé")
	}
	if ticks := drain(t, s, task); ticks != 3 {
		t.Errorf("needed %d more ticks, expected 3", ticks)
	}
	if s.VisibleNarrative() != "héllo" {
		t.Errorf("final narrative %q", s.VisibleNarrative())
	}

	task, _ = s.Next()
	if task.Interval != 20*time.Millisecond {
		t.Errorf("body interval = %v", task.Interval)
	}
	drain(t, s, task)
	if s.VisibleBody() != "Dear user" {
		t.Errorf("final body %q", s.VisibleBody())
	}
}

func TestImpactCounter(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		score float64
		ticks int
	}{
		{"82 in steps of 3", 82, 28},
		{"exact multiple", 90, 30},
		{"small score", 5, 5},
		{"fractional", 82.5, 28},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := testContent()
			c.RiskScore = tc.score
			s := New(c, DefaultConfig())
			s.Open()
			s.Next()
			s.Next()
			task, _ := s.Next()
			if task.Interval != 50*time.Millisecond {
				t.Errorf("counter interval = %v", task.Interval)
			}

			prev := 0.0
			ticks := 0
			for task.Active {
				var more bool
				task, more = s.Tick(task.Token)
				ticks++
				if s.State().Score < prev || s.State().Score > tc.score {
					t.Fatalf("counter went to %v", s.State().Score)
				}
				prev = s.State().Score
				if !more {
					break
				}
			}
			if s.State().Score != tc.score {
				t.Errorf("final score %v, expected %v", s.State().Score, tc.score)
			}
			if ticks != tc.ticks {
				t.Errorf("took %d ticks, expected %d", ticks, tc.ticks)
			}
		})
	}

	t.Run("zero score completes on entry", func(t *testing.T) {
		t.Parallel()
		c := testContent()
		c.RiskScore = 0
		s := New(c, DefaultConfig())
		s.Open()
		s.Next()
		s.Next()
		if task, _ := s.Next(); task.Active {
			t.Error("expected no task for a zero score")
		}
	})
}

func TestSkipConvergesOnNextTick(t *testing.T) {
	t.Parallel()

	stages := []Stage{StageReconnaissance, StageProfiling, StageWeaponization, StageImpact}
	for _, stage := range stages {
		t.Run(stage.String(), func(t *testing.T) {
			t.Parallel()
			s := New(testContent(), DefaultConfig())
			task := s.Open()
			for s.State().Stage != stage {
				task, _ = s.Next()
			}
			task, _ = s.Tick(task.Token)

			s.Skip()
			next, more := s.Tick(task.Token)
			if more || next.Active {
				t.Error("ticking should halt after a skip")
			}
			if !s.Done() {
				t.Errorf("stage not at its terminal value: %+v", s.State())
			}

			before := s.State()
			if _, more := s.Tick(task.Token); more {
				t.Error("tick after completion should not continue")
			}
			if s.State() != before {
				t.Error("tick after completion changed state")
			}
		})
	}
}

func TestSkipStaysSetForLaterStages(t *testing.T) {
	t.Parallel()

	s := New(testContent(), DefaultConfig())
	task := s.Open()
	s.Skip()
	s.Tick(task.Token)

	for _, expected := range []Stage{StageProfiling, StageWeaponization, StageImpact} {
		task, closed := s.Next()
		if closed {
			t.Fatal("closed early")
		}
		if task.Active {
			t.Errorf("%v should complete on entry while skip is set", expected)
		}
		if s.State().Stage != expected || !s.Done() {
			t.Errorf("unexpected state %+v", s.State())
		}
	}
	if s.State().Score != 82 {
		t.Errorf("score = %v, expected 82", s.State().Score)
	}
}

func TestStaleTokensAreIgnored(t *testing.T) {
	t.Parallel()

	s := New(testContent(), DefaultConfig())
	first := s.Open()
	s.Tick(first.Token)

	second, _ := s.Next()
	if second.Token == first.Token {
		t.Fatal("stage change must issue a new token")
	}

	before := s.State()
	if _, more := s.Tick(first.Token); more {
		t.Error("stale tick should not continue")
	}
	if s.State() != before {
		t.Errorf("stale tick mutated state: %+v -> %+v", before, s.State())
	}

	s.Close()
	if _, more := s.Tick(second.Token); more {
		t.Error("tick after close should not continue")
	}
	if s.State() != before {
		t.Error("tick after close mutated state")
	}
}

func TestNavigation(t *testing.T) {
	t.Parallel()

	s := New(testContent(), DefaultConfig())
	task := s.Open()

	if got := s.Back(); got != task {
		t.Errorf("Back at Reconnaissance changed the task: %+v", got)
	}
	if s.State().Stage != StageReconnaissance {
		t.Error("Back at Reconnaissance must be a no-op")
	}

	for i := 0; i < 3; i++ {
		if _, closed := s.Next(); closed {
			t.Fatalf("closed at step %d", i)
		}
	}
	if s.State().Stage != StageImpact {
		t.Fatalf("stage = %v, expected Impact", s.State().Stage)
	}

	s.Back()
	if s.State().Stage != StageWeaponization || s.State().Body != 0 {
		t.Errorf("unexpected state after Back: %+v", s.State())
	}

	s.Next()
	if _, closed := s.Next(); !closed {
		t.Error("Next at Impact should close")
	}
	if s.IsOpen() {
		t.Error("sequencer should be closed")
	}
}

func TestEmptyContent(t *testing.T) {
	t.Parallel()

	s := New(Content{}, DefaultConfig())
	if task := s.Open(); task.Active {
		t.Error("no entities means nothing to schedule")
	}
	for i := 0; i < 3; i++ {
		if task, _ := s.Next(); task.Active {
			t.Errorf("stage %v scheduled a task for empty content", s.State().Stage)
		}
	}
	if got := s.VisibleRecon(); len(got) != 0 {
		t.Errorf("unexpected recon %v", got)
	}
}

func TestContentFrom(t *testing.T) {
	t.Parallel()

	r := model.MustParseAnalysisResult(`{
		"entities": {"emails": ["a@x.io"], "skills": "Go"},
		"persona_simulation": {"narrative": "story"},
		"phishing_simulation": {"email_body": "body"},
		"risk_assessment": {"risk_score": 40}
	}`)
	c := ContentFrom(r)
	if len(c.Recon) != 2 || c.Narrative != "story" || c.Body != "body" || c.RiskScore != 40 {
		t.Errorf("unexpected content %+v", c)
	}

	if got := ContentFrom(nil); got.RiskScore != 0 || len(got.Recon) != 0 {
		t.Errorf("unexpected content from nil %+v", got)
	}
}

func TestStageStrings(t *testing.T) {
	t.Parallel()

	expected := []string{"Reconnaissance", "Profiling", "Weaponization", "Impact"}
	for i, want := range expected {
		if got := Stage(i).String(); got != want {
			t.Errorf("Stage(%d) = %q, expected %q", i, got, want)
		}
		if Stage(i).Tagline() == "" {
			t.Errorf("Stage(%d) has no tagline", i)
		}
	}
	if Stage(9).String() != "Unknown" {
		t.Error("expected Unknown for an invalid stage")
	}
}
