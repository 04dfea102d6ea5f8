package view

import (
	"strings"

	"github.com/nao1215/personashield/internal/model"
	"github.com/nao1215/personashield/internal/risk"
)

// Fallback texts.
const (
	DefaultPersona         = "The Recon Analyst"
	DefaultPhishingSubject = "Verification Required"
)

// PersonaView is the persona exposure page.
type PersonaView struct {
	Empty     bool   `json:"empty"`
	Persona   string `json:"persona"`
	Narrative string `json:"narrative"`
}

// PersonaExposure shows the adversary narrative. It is empty without one.
func PersonaExposure(r *model.AnalysisResult) PersonaView {
	p, _ := r.Persona()
	if p.Narrative == "" {
		return PersonaView{Empty: true}
	}
	persona := p.Persona
	if persona == "" {
		persona = DefaultPersona
	}
	return PersonaView{Persona: persona, Narrative: p.Narrative}
}

// PhishingView is the phishing simulation page.
type PhishingView struct {
	Empty      bool   `json:"empty"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	Disclaimer string `json:"disclaimer,omitempty"`
}

// Phishing shows the sample email. It is empty when there is neither a
// subject nor a body.
func Phishing(r *model.AnalysisResult) PhishingView {
	p, _ := r.Phishing()
	if p.Subject == "" && p.Body == "" {
		return PhishingView{Empty: true}
	}
	subject := p.Subject
	if subject == "" {
		subject = DefaultPhishingSubject
	}
	return PhishingView{Subject: subject, Body: p.Body, Disclaimer: p.Disclaimer}
}

// TwinEntity is a node of the digital twin entity cloud.
type TwinEntity struct {
	Name   string `json:"name"`
	Weight string `json:"weight"`
}

// TwinEntities are the fixed nodes of the entity cloud.
var TwinEntities = []TwinEntity{
	{"Identity Cluster", "High"},
	{"Geographic Nodes", "Med"},
	{"Professional Graph", "High"},
	{"Skill Signatures", "Low"},
	{"Credential Surface", "Med"},
}

// HardeningChecklist is the fixed list of suggested fixes.
var HardeningChecklist = []string{
	"Review PII Exposure",
	"Anonymize Geographic data",
	"Enable Hardware 2FA",
	"Limit Skill keywords",
}

// ThreatStep is one numbered primary threat.
type ThreatStep struct {
	Index       int    `json:"index"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// DigitalTwinView is the digital twin page.
type DigitalTwinView struct {
	Empty       bool         `json:"empty"`
	Explanation string       `json:"explanation,omitempty"`
	Narrative   string       `json:"narrative,omitempty"`
	Threats     []ThreatStep `json:"threats"`
	RiskLevel   string       `json:"risk_level,omitempty"`
	Tone        Tone         `json:"tone"`
	Entities    []TwinEntity `json:"entities"`
	Checklist   []string     `json:"checklist"`
}

// RiskLevelTone maps a server-reported risk level to a badge tone.
func RiskLevelTone(level string) Tone {
	switch strings.ToLower(level) {
	case "critical", "high":
		return ToneDanger
	case "moderate":
		return ToneWarning
	default:
		return ToneSuccess
	}
}

// DigitalTwin combines the explanation, narrative and primary threats. It
// is empty when all three are missing.
func DigitalTwin(r *model.AnalysisResult) DigitalTwinView {
	explanation, _ := r.Explanation()
	narrative := r.Narrative()
	threats := r.PrimaryThreats()

	if explanation == "" && narrative == "" && len(threats) == 0 {
		return DigitalTwinView{Empty: true, Threats: []ThreatStep{}}
	}

	steps := make([]ThreatStep, 0, len(threats))
	for i, t := range threats {
		steps = append(steps, ThreatStep{
			Index:       i + 1,
			Title:       t.Title(),
			Description: t.Description,
		})
	}

	ra, _ := r.Risk()
	return DigitalTwinView{
		Explanation: explanation,
		Narrative:   narrative,
		Threats:     steps,
		RiskLevel:   ra.RiskLevel,
		Tone:        RiskLevelTone(ra.RiskLevel),
		Entities:    TwinEntities,
		Checklist:   HardeningChecklist,
	}
}

// HardeningView compares the current score with the hardened one.
type HardeningView struct {
	Empty       bool         `json:"empty"`
	Original    model.Number `json:"original"`
	Hardened    model.Number `json:"hardened"`
	Difference  model.Number `json:"difference"`
	Explanation string       `json:"explanation,omitempty"`
	// HardenedLevel is the dashboard level of the hardened score.
	HardenedLevel risk.Level `json:"hardened_level,omitempty"`
}

// Hardening shows the hardening simulation when the service sent one.
func Hardening(r *model.AnalysisResult) HardeningView {
	h, ok := r.Hardening()
	if !ok {
		return HardeningView{Empty: true}
	}
	diff := h.Difference
	if !diff.Valid && h.OriginalScore.Valid && h.HardenedScore.Valid {
		diff = model.Num(h.OriginalScore.Value - h.HardenedScore.Value)
	}
	lvl, _ := risk.RiskLevel(h.HardenedScore)
	return HardeningView{
		Original:      h.OriginalScore,
		Hardened:      h.HardenedScore,
		Difference:    diff,
		Explanation:   h.Explanation,
		HardenedLevel: lvl,
	}
}
