package view

import (
	"strings"

	"github.com/nao1215/personashield/internal/model"
)

// Simulation modal texts.
const (
	SimulationUnavailable = "Simulation unavailable for this dataset"
	NoRiskData            = "No risk data"
	NoPersonalData        = "No personal data found"
	UrgentSubject         = "Urgent Action Required"
	PhishingSender        = "no-reply@trusted-service.com"

	impactWarningLimit = 300
)

// ImpactView is the last stage of the attack simulation.
type ImpactView struct {
	// HasScore is false when the risk score is missing or not positive;
	// the stage then shows NoRiskData instead of a counter.
	HasScore bool    `json:"has_score"`
	Score    float64 `json:"score"`
	// Warning is the opening of the explanation, empty without one.
	Warning string `json:"warning,omitempty"`
}

// Impact builds the final stage of the simulation.
func Impact(r *model.AnalysisResult) ImpactView {
	score := r.RiskScore().Or(0)
	explanation, _ := r.Explanation()
	return ImpactView{
		HasScore: score > 0,
		Score:    score,
		Warning:  ImpactWarning(explanation),
	}
}

// ImpactWarning returns the first paragraph of the explanation cut to 300
// characters and followed by "...". It returns "" for an empty explanation.
func ImpactWarning(explanation string) string {
	if explanation == "" {
		return ""
	}
	first, _, _ := strings.Cut(explanation, "\n\n")
	runes := []rune(first)
	if len(runes) > impactWarningLimit {
		runes = runes[:impactWarningLimit]
	}
	return string(runes) + "..."
}

// EmailSubject returns the phishing subject shown in the simulation.
func EmailSubject(r *model.AnalysisResult) string {
	p, _ := r.Phishing()
	if p.Subject == "" {
		return UrgentSubject
	}
	return p.Subject
}
