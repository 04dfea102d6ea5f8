package model

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
)

const fullPayload = `{
  "analysis_id": "an-123",
  "input_summary": {"input_type": "pdf", "character_count": 2048, "timestamp": "2025-01-02T03:04:05Z"},
  "entities": {"emails": ["a@x.com"], "company": "Acme"},
  "risk_assessment": {
    "risk_score": 82,
    "risk_level": "High",
    "score_breakdown": {"location_exposure": 20, "skill_exposure": 15, "bogus": "n/a"},
    "inferred_risks": ["Relocation pattern", ""],
    "correlation_depth": 6.5,
    "visibility_score": "high",
    "timeline_years": 4
  },
  "attack_analysis": {
    "attack_vectors": [
      {"category": "Phishing", "severity": "High Risk", "contributing_factors": ["email", "employer"]},
      {"category": "Doxxing", "severity": "medium", "contributing_factors": "home city"},
      {"severity": "low", "contributing_factors": 42}
    ],
    "primary_threats": [
      {"step": "Harvest", "description": "Collect public profiles"},
      {"threat": "Impersonation"},
      "Credential stuffing"
    ]
  },
  "persona_simulation": {"persona": "Recruiter", "narrative": "I found you."},
  "phishing_simulation": {"email_subject": "Offer", "email_body": "Hello", "disclaimer": "Simulated"},
  "explanation": {"explanation": "First.\n\nSecond."},
  "hardening_simulation": {"original_score": 82, "hardened_score": 40, "difference": 42, "explanation": "Remove phone"},
  "visualization": {"nodes": []}
}`

// TestParseAnalysisResult tests decoding of a complete payload.
func TestParseAnalysisResult(t *testing.T) {
	t.Parallel()

	r, err := ParseAnalysisResult([]byte(fullPayload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("identity fields", func(t *testing.T) {
		t.Parallel()

		if r.ID() != "an-123" {
			t.Errorf("expected id an-123, got %q", r.ID())
		}
		if r.Timestamp() != "2025-01-02T03:04:05Z" {
			t.Errorf("unexpected timestamp %q", r.Timestamp())
		}
		if got := r.InputSummary().CharacterCount; !got.Valid || got.Value != 2048 {
			t.Errorf("unexpected character count %+v", got)
		}
	})

	t.Run("risk assessment", func(t *testing.T) {
		t.Parallel()

		ra, ok := r.Risk()
		if !ok {
			t.Fatal("expected risk assessment")
		}
		if ra.RiskScore != Num(82) {
			t.Errorf("expected score 82, got %+v", ra.RiskScore)
		}
		wantKeys := []string{"location_exposure", "skill_exposure", "bogus"}
		var gotKeys []string
		for _, f := range ra.ScoreBreakdown {
			gotKeys = append(gotKeys, f.Key)
		}
		if !slices.Equal(gotKeys, wantKeys) {
			t.Errorf("expected breakdown order %v, got %v", wantKeys, gotKeys)
		}
		if ra.ScoreBreakdown[2].Value.Valid {
			t.Error("expected non-numeric factor to be absent")
		}
		if ra.VisibilityScore.Valid {
			t.Error("expected string visibility score to be absent")
		}
		if ra.CorrelationDepth != Num(6.5) {
			t.Errorf("unexpected correlation depth %+v", ra.CorrelationDepth)
		}
		if !slices.Equal(ra.InferredRisks, []string{"Relocation pattern"}) {
			t.Errorf("unexpected inferred risks %v", ra.InferredRisks)
		}
	})

	t.Run("attack analysis", func(t *testing.T) {
		t.Parallel()

		vectors := r.AttackVectors()
		if len(vectors) != 3 {
			t.Fatalf("expected 3 vectors, got %d", len(vectors))
		}
		if !slices.Equal(vectors[0].ContributingFactors, []string{"email", "employer"}) {
			t.Errorf("unexpected factors %v", vectors[0].ContributingFactors)
		}
		if !slices.Equal(vectors[1].ContributingFactors, []string{"home city"}) {
			t.Errorf("expected string factor to become a list, got %v", vectors[1].ContributingFactors)
		}
		if len(vectors[2].ContributingFactors) != 0 {
			t.Errorf("expected numeric factors to become empty, got %v", vectors[2].ContributingFactors)
		}
		if vectors[2].Category != "" {
			t.Errorf("expected missing category to be empty, got %q", vectors[2].Category)
		}

		threats := r.PrimaryThreats()
		titles := make([]string, 0, len(threats))
		for _, th := range threats {
			titles = append(titles, th.Title())
		}
		if !slices.Equal(titles, []string{"Harvest", "Impersonation", "Credential stuffing"}) {
			t.Errorf("unexpected threat titles %v", titles)
		}
	})

	t.Run("simulations and explanation", func(t *testing.T) {
		t.Parallel()

		p, ok := r.Persona()
		if !ok || p.Persona != "Recruiter" || p.Narrative != "I found you." {
			t.Errorf("unexpected persona %+v", p)
		}
		ph, ok := r.Phishing()
		if !ok || ph.Subject != "Offer" || ph.Body != "Hello" || ph.Disclaimer != "Simulated" {
			t.Errorf("unexpected phishing %+v", ph)
		}
		exp, ok := r.Explanation()
		if !ok || exp != "First.\n\nSecond." {
			t.Errorf("unexpected explanation %q", exp)
		}
		h, ok := r.Hardening()
		if !ok || h.HardenedScore != Num(40) || h.Difference != Num(42) {
			t.Errorf("unexpected hardening %+v", h)
		}
	})
}

// TestParseAnalysisResultErrors tests rejection of non-object payloads.
func TestParseAnalysisResultErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		payload string
		notObj  bool
	}{
		{"invalid json", `{"analysis_id":`, false},
		{"array", `[1,2]`, true},
		{"string", `"hello"`, true},
		{"null", `null`, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseAnalysisResult([]byte(tc.payload))
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.notObj && !errors.Is(err, ErrNotAnObject) {
				t.Errorf("expected ErrNotAnObject, got %v", err)
			}
		})
	}
}

// TestAccessorsOnMissingData tests that every accessor is total.
func TestAccessorsOnMissingData(t *testing.T) {
	t.Parallel()

	results := map[string]*AnalysisResult{
		"nil receiver":   nil,
		"empty object":   MustParseAnalysisResult(`{}`),
		"wrong sections": MustParseAnalysisResult(`{"risk_assessment": [], "attack_analysis": "x", "entities": 5, "explanation": {"explanation": 3}, "persona_simulation": null}`),
	}

	for name, r := range results {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if _, ok := r.Risk(); ok {
				t.Error("expected no risk assessment")
			}
			if r.RiskScore().Valid {
				t.Error("expected absent risk score")
			}
			if r.AttackVectors() != nil {
				t.Error("expected nil attack vectors")
			}
			if r.PrimaryThreats() != nil {
				t.Error("expected nil primary threats")
			}
			if _, ok := r.Explanation(); ok {
				t.Error("expected no explanation")
			}
			if _, ok := r.Persona(); ok {
				t.Error("expected no persona")
			}
			if r.Narrative() != "" {
				t.Error("expected empty narrative")
			}
			if r.Entities() == nil {
				t.Error("expected non-nil entities")
			}
			if len(BuildReconList(r.Entities())) != 0 {
				t.Error("expected empty recon list")
			}
		})
	}
}

// TestAccessorsReturnCopies tests that writes through returned values do not
// reach the result.
func TestAccessorsReturnCopies(t *testing.T) {
	t.Parallel()

	r := MustParseAnalysisResult(fullPayload)

	vectors := r.AttackVectors()
	vectors[0].Severity = "low"
	vectors[0].ContributingFactors[0] = "changed"
	threats := r.PrimaryThreats()
	threats[0].Step = "changed"
	entities := r.Entities()
	entities[EntityEmails] = json.RawMessage(`"evil@x.io"`)
	entities[EntityCompany][1] = 'X'
	delete(entities, EntityCompany)

	got := r.AttackVectors()[0]
	if got.Severity != "High Risk" || got.ContributingFactors[0] != "email" {
		t.Errorf("attack vector was changed through a returned slice: %+v", got)
	}
	if step := r.PrimaryThreats()[0].Step; step != "Harvest" {
		t.Errorf("threat step = %q, expected Harvest", step)
	}
	recon := BuildReconList(r.Entities())
	if len(recon) != 2 || recon[0].Value != "a@x.com" || recon[1].Value != "Acme" {
		t.Errorf("entities were changed through the returned map: %+v", recon)
	}
}

// TestAnalysisResultJSONRoundTrip tests that persisted results are byte-stable.
func TestAnalysisResultJSONRoundTrip(t *testing.T) {
	t.Parallel()

	r := MustParseAnalysisResult(fullPayload)

	data, err := json.Marshal([]*AnalysisResult{r})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var back []*AnalysisResult
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(back) != 1 {
		t.Fatalf("expected 1 result, got %d", len(back))
	}
	if back[0].ID() != "an-123" {
		t.Errorf("expected id to survive, got %q", back[0].ID())
	}

	// Unknown members such as "visualization" are kept verbatim.
	var generic map[string]any
	if err := json.Unmarshal(back[0].Raw(), &generic); err != nil {
		t.Fatalf("raw is not valid JSON: %v", err)
	}
	if _, ok := generic["visualization"]; !ok {
		t.Error("expected unknown member to be preserved")
	}
}

// TestUnmarshalNonObjectEntry tests that foreign history entries are kept.
func TestUnmarshalNonObjectEntry(t *testing.T) {
	t.Parallel()

	var back []*AnalysisResult
	if err := json.Unmarshal([]byte(`["legacy", {"analysis_id": "b"}]`), &back); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(back) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(back))
	}
	if back[0].ID() != "" || back[1].ID() != "b" {
		t.Errorf("unexpected ids %q, %q", back[0].ID(), back[1].ID())
	}

	out, err := json.Marshal(back)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != `["legacy",{"analysis_id":"b"}]` {
		t.Errorf("unexpected re-encoding %s", out)
	}
}

// TestDuplicateFactorKeys tests JSON.parse-compatible handling of repeated keys.
func TestDuplicateFactorKeys(t *testing.T) {
	t.Parallel()

	r := MustParseAnalysisResult(`{"risk_assessment": {"score_breakdown": {"a": 1, "b": 2, "a": 3}}}`)
	ra, _ := r.Risk()
	if len(ra.ScoreBreakdown) != 2 {
		t.Fatalf("expected 2 factors, got %d", len(ra.ScoreBreakdown))
	}
	if ra.ScoreBreakdown[0].Key != "a" || ra.ScoreBreakdown[0].Value != Num(3) {
		t.Errorf("expected a=3 first, got %+v", ra.ScoreBreakdown[0])
	}
}

// TestNumber tests the optional number helpers.
func TestNumber(t *testing.T) {
	t.Parallel()

	if (Number{}).Or(7) != 7 {
		t.Error("expected default for absent number")
	}
	if Num(2.5).Or(7) != 2.5 {
		t.Error("expected value for valid number")
	}
	if (Number{}).String() != "-" || Num(82).String() != "82" {
		t.Error("unexpected String output")
	}

	var n Number
	if err := json.Unmarshal([]byte(`"12"`), &n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Valid {
		t.Error("expected string to decode as absent")
	}
	data, _ := json.Marshal(Number{})
	if string(data) != "null" {
		t.Errorf("expected null, got %s", data)
	}
}
