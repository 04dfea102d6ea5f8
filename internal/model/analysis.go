package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
)

// ErrNotAnObject is returned by ParseAnalysisResult when the payload is valid
// JSON but not a JSON object.
var ErrNotAnObject = errors.New("analysis payload is not a JSON object")

// AnalysisResult is the record of one analysis run as returned by the
// analysis service. It is immutable: it is decoded once and then only read
// through its accessors, every one of which tolerates absent or wrong-typed
// fields and never panics, including on a nil receiver.
//
// The original document is kept verbatim so that persisting and reloading a
// result reproduces exactly what the service sent, including fields this
// client does not interpret (for example "visualization").
type AnalysisResult struct {
	raw json.RawMessage

	id           string
	inputSummary InputSummary
	entities     Entities

	persona     *PersonaSimulation
	phishing    *PhishingSimulation
	risk        *RiskAssessment
	attack      *AttackAnalysis
	explanation *string
	hardening   *HardeningSimulation
}

// InputSummary describes the uploaded source document.
type InputSummary struct {
	InputType      string
	CharacterCount Number
	Timestamp      string
}

// PersonaSimulation is the adversary narrative built from the document.
type PersonaSimulation struct {
	// Persona is the adversarial persona label. Empty when not provided.
	Persona   string
	Narrative string
}

// PhishingSimulation is a sample phishing email targeting the subject.
type PhishingSimulation struct {
	Subject    string
	Body       string
	Disclaimer string
}

// RiskAssessment holds the numeric risk metrics.
type RiskAssessment struct {
	RiskScore Number
	RiskLevel string

	// ScoreBreakdown keeps the factors in document order.
	// HasBreakdown is true when the payload carried a breakdown object,
	// even an empty one.
	ScoreBreakdown []Factor
	HasBreakdown   bool

	InferredRisks    []string
	CorrelationDepth Number
	VisibilityScore  Number
	TimelineYears    Number
}

// AttackVector is one categorized threat pathway.
type AttackVector struct {
	Category string
	// Severity is the free-text label sent by the service, e.g. "High Risk".
	Severity            string
	ContributingFactors []string
}

// Threat is one entry of primary_threats. The service sends either an object
// with step/threat/description or a bare string, which lands in Text.
type Threat struct {
	Step        string
	Threat      string
	Description string
	Text        string
}

// Title returns the first non-empty of step, threat and the bare text.
func (t Threat) Title() string {
	switch {
	case t.Step != "":
		return t.Step
	case t.Threat != "":
		return t.Threat
	default:
		return t.Text
	}
}

// AttackAnalysis groups attack vectors and the primary threat chain.
type AttackAnalysis struct {
	AttackVectors  []AttackVector
	PrimaryThreats []Threat
}

// HardeningSimulation compares the current score with the score after
// recommended hardening steps.
type HardeningSimulation struct {
	OriginalScore Number
	HardenedScore Number
	Difference    Number
	Explanation   string
}

// ParseAnalysisResult decodes a payload received from the analysis service.
// Only a payload that is not a JSON object is rejected; every nested field is
// decoded leniently.
func ParseAnalysisResult(data []byte) (*AnalysisResult, error) {
	if !json.Valid(data) {
		return nil, errors.New("analysis payload is not valid JSON")
	}
	if kindOf(data) != kindObject {
		return nil, ErrNotAnObject
	}
	r := &AnalysisResult{}
	r.decode(data)
	return r, nil
}

// MustParseAnalysisResult is like ParseAnalysisResult but panics on error.
// It is intended for fixtures.
func MustParseAnalysisResult(data string) *AnalysisResult {
	r, err := ParseAnalysisResult([]byte(data))
	if err != nil {
		panic(err)
	}
	return r
}

// UnmarshalJSON decodes any JSON value. Values that are not objects produce a
// result with no data, which keeps persisted history entries intact even when
// they were written by an older or foreign client.
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	*r = AnalysisResult{}
	r.decode(data)
	return nil
}

// MarshalJSON returns the document exactly as it was received.
func (r *AnalysisResult) MarshalJSON() ([]byte, error) {
	if r == nil || len(r.raw) == 0 {
		return []byte("null"), nil
	}
	return r.raw, nil
}

// Raw returns a copy of the original document.
func (r *AnalysisResult) Raw() json.RawMessage {
	if r == nil {
		return nil
	}
	return bytes.Clone(r.raw)
}

// ID returns analysis_id, or "" when absent.
func (r *AnalysisResult) ID() string {
	if r == nil {
		return ""
	}
	return r.id
}

// InputSummary returns input_summary. Missing members are zero values.
func (r *AnalysisResult) InputSummary() InputSummary {
	if r == nil {
		return InputSummary{}
	}
	return r.inputSummary
}

// Timestamp returns input_summary.timestamp, or "" when absent.
func (r *AnalysisResult) Timestamp() string {
	return r.InputSummary().Timestamp
}

// Entities returns a copy of the extracted entities. The result is never
// nil.
func (r *AnalysisResult) Entities() Entities {
	if r == nil || r.entities == nil {
		return Entities{}
	}
	out := make(Entities, len(r.entities))
	for k, v := range r.entities {
		out[k] = bytes.Clone(v)
	}
	return out
}

// Persona returns persona_simulation when it is present.
func (r *AnalysisResult) Persona() (PersonaSimulation, bool) {
	if r == nil || r.persona == nil {
		return PersonaSimulation{}, false
	}
	return *r.persona, true
}

// Narrative returns persona_simulation.narrative, or "" when absent.
func (r *AnalysisResult) Narrative() string {
	p, _ := r.Persona()
	return p.Narrative
}

// Phishing returns phishing_simulation when it is present.
func (r *AnalysisResult) Phishing() (PhishingSimulation, bool) {
	if r == nil || r.phishing == nil {
		return PhishingSimulation{}, false
	}
	return *r.phishing, true
}

// Risk returns risk_assessment when it is present.
func (r *AnalysisResult) Risk() (RiskAssessment, bool) {
	if r == nil || r.risk == nil {
		return RiskAssessment{}, false
	}
	out := *r.risk
	out.ScoreBreakdown = append([]Factor(nil), r.risk.ScoreBreakdown...)
	return out, true
}

// RiskScore returns risk_assessment.risk_score.
func (r *AnalysisResult) RiskScore() Number {
	ra, _ := r.Risk()
	return ra.RiskScore
}

// Attack returns a copy of attack_analysis when it is present.
func (r *AnalysisResult) Attack() (AttackAnalysis, bool) {
	if r == nil || r.attack == nil {
		return AttackAnalysis{}, false
	}
	out := AttackAnalysis{
		AttackVectors:  slices.Clone(r.attack.AttackVectors),
		PrimaryThreats: slices.Clone(r.attack.PrimaryThreats),
	}
	for i := range out.AttackVectors {
		out.AttackVectors[i].ContributingFactors = slices.Clone(out.AttackVectors[i].ContributingFactors)
	}
	return out, true
}

// AttackVectors returns attack_analysis.attack_vectors. It is nil when the
// field is absent or not an array.
func (r *AnalysisResult) AttackVectors() []AttackVector {
	a, _ := r.Attack()
	return a.AttackVectors
}

// PrimaryThreats returns attack_analysis.primary_threats.
func (r *AnalysisResult) PrimaryThreats() []Threat {
	a, _ := r.Attack()
	return a.PrimaryThreats
}

// Explanation returns explanation.explanation when it is a string.
func (r *AnalysisResult) Explanation() (string, bool) {
	if r == nil || r.explanation == nil {
		return "", false
	}
	return *r.explanation, true
}

// Hardening returns hardening_simulation when it is present.
func (r *AnalysisResult) Hardening() (HardeningSimulation, bool) {
	if r == nil || r.hardening == nil {
		return HardeningSimulation{}, false
	}
	return *r.hardening, true
}

// decode fills the typed view of the document. It never fails.
func (r *AnalysisResult) decode(data []byte) {
	r.raw = bytes.Clone(bytes.TrimSpace(data))

	top, ok := decodeObject(data)
	if !ok {
		return
	}

	r.id, _ = decodeString(top["analysis_id"])
	r.inputSummary = decodeInputSummary(top["input_summary"])
	r.entities = decodeEntities(top["entities"])
	r.persona = decodePersona(top["persona_simulation"])
	r.phishing = decodePhishing(top["phishing_simulation"])
	r.risk = decodeRisk(top["risk_assessment"])
	r.attack = decodeAttack(top["attack_analysis"])
	r.hardening = decodeHardening(top["hardening_simulation"])

	if obj, ok := decodeObject(top["explanation"]); ok {
		if s, ok := decodeString(obj["explanation"]); ok {
			r.explanation = &s
		}
	}
}

func decodeInputSummary(raw json.RawMessage) InputSummary {
	obj, ok := decodeObject(raw)
	if !ok {
		return InputSummary{}
	}
	var s InputSummary
	s.InputType, _ = decodeString(obj["input_type"])
	s.CharacterCount = decodeNumber(obj["character_count"])
	s.Timestamp, _ = decodeString(obj["timestamp"])
	return s
}

func decodePersona(raw json.RawMessage) *PersonaSimulation {
	obj, ok := decodeObject(raw)
	if !ok {
		return nil
	}
	var p PersonaSimulation
	p.Narrative, _ = decodeString(obj["narrative"])
	if persona, ok := decodeString(obj["adversarial_persona"]); ok && persona != "" {
		p.Persona = persona
	} else {
		p.Persona, _ = decodeString(obj["persona"])
	}
	return &p
}

func decodePhishing(raw json.RawMessage) *PhishingSimulation {
	obj, ok := decodeObject(raw)
	if !ok {
		return nil
	}
	var p PhishingSimulation
	p.Subject, _ = decodeString(obj["email_subject"])
	p.Body, _ = decodeString(obj["email_body"])
	p.Disclaimer, _ = decodeString(obj["disclaimer"])
	return &p
}

func decodeRisk(raw json.RawMessage) *RiskAssessment {
	obj, ok := decodeObject(raw)
	if !ok {
		return nil
	}
	var ra RiskAssessment
	ra.RiskScore = decodeNumber(obj["risk_score"])
	ra.RiskLevel, _ = decodeString(obj["risk_level"])
	ra.ScoreBreakdown, ra.HasBreakdown = decodeOrderedFactors(obj["score_breakdown"])
	ra.CorrelationDepth = decodeNumber(obj["correlation_depth"])
	ra.VisibilityScore = decodeNumber(obj["visibility_score"])
	ra.TimelineYears = decodeNumber(obj["timeline_years"])
	if arr, ok := decodeArray(obj["inferred_risks"]); ok {
		for _, item := range arr {
			if s, ok := displayString(item); ok {
				ra.InferredRisks = append(ra.InferredRisks, s)
			}
		}
	}
	return &ra
}

func decodeAttack(raw json.RawMessage) *AttackAnalysis {
	obj, ok := decodeObject(raw)
	if !ok {
		return nil
	}
	var a AttackAnalysis
	if arr, ok := decodeArray(obj["attack_vectors"]); ok {
		a.AttackVectors = make([]AttackVector, 0, len(arr))
		for _, item := range arr {
			a.AttackVectors = append(a.AttackVectors, decodeAttackVector(item))
		}
	}
	if arr, ok := decodeArray(obj["primary_threats"]); ok {
		a.PrimaryThreats = make([]Threat, 0, len(arr))
		for _, item := range arr {
			a.PrimaryThreats = append(a.PrimaryThreats, decodeThreat(item))
		}
	}
	return &a
}

func decodeAttackVector(raw json.RawMessage) AttackVector {
	obj, ok := decodeObject(raw)
	if !ok {
		return AttackVector{}
	}
	var v AttackVector
	v.Category, _ = decodeString(obj["category"])
	v.Severity, _ = decodeString(obj["severity"])
	v.ContributingFactors = decodeFactorList(obj["contributing_factors"])
	return v
}

// decodeFactorList accepts an array or a single string; anything else is an
// empty list.
func decodeFactorList(raw json.RawMessage) []string {
	if s, ok := decodeString(raw); ok {
		return []string{s}
	}
	arr, ok := decodeArray(raw)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if kindOf(item) == kindNull {
			continue
		}
		if s, ok := decodeString(item); ok {
			out = append(out, s)
			continue
		}
		if s, ok := displayString(item); ok {
			out = append(out, s)
		}
	}
	return out
}

func decodeThreat(raw json.RawMessage) Threat {
	if s, ok := decodeString(raw); ok {
		return Threat{Text: s}
	}
	obj, ok := decodeObject(raw)
	if !ok {
		return Threat{}
	}
	var t Threat
	t.Step, _ = decodeString(obj["step"])
	t.Threat, _ = decodeString(obj["threat"])
	t.Description, _ = decodeString(obj["description"])
	return t
}

func decodeHardening(raw json.RawMessage) *HardeningSimulation {
	obj, ok := decodeObject(raw)
	if !ok {
		return nil
	}
	var h HardeningSimulation
	h.OriginalScore = decodeNumber(obj["original_score"])
	h.HardenedScore = decodeNumber(obj["hardened_score"])
	h.Difference = decodeNumber(obj["difference"])
	h.Explanation, _ = decodeString(obj["explanation"])
	return &h
}
