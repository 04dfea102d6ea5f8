package view

import (
	"errors"
	"fmt"

	"github.com/nao1215/personashield/internal/model"
	"github.com/nao1215/personashield/internal/risk"
)

// ErrUnknownPage is returned by Build for a page slug that does not exist.
var ErrUnknownPage = errors.New("unknown dashboard page")

// Page is the slug of a dashboard page.
type Page string

// Dashboard pages in sidebar order.
const (
	PageRiskGraphs       Page = "risk-graphs"
	PagePersona          Page = "persona"
	PageAttackVectors    Page = "attack-vectors"
	PagePhishing         Page = "phishing"
	PageCorrelationDepth Page = "correlation"
	PageVisibility       Page = "visibility"
	PageTimeline         Page = "timeline"
	PageWeightedRisk     Page = "risk-score"
	PageDigitalTwin      Page = "digital-twin"
	PageHardening        Page = "hardening"
)

// PageInfo is a sidebar entry.
type PageInfo struct {
	Page  Page   `json:"page"`
	Title string `json:"title"`
}

// Pages lists every dashboard page in sidebar order.
var Pages = []PageInfo{
	{PageRiskGraphs, "Risk Graphs"},
	{PagePersona, "Persona Exposure"},
	{PageAttackVectors, "Attack Vectors"},
	{PagePhishing, "Phishing Sim"},
	{PageCorrelationDepth, "Correlation Depth"},
	{PageVisibility, "Visibility Score"},
	{PageTimeline, "Exposure Timeline"},
	{PageWeightedRisk, "Weighted Risk"},
	{PageDigitalTwin, "Digital Twin"},
	{PageHardening, "Hardening"},
}

// Title returns the sidebar title of the page, or the slug when unknown.
func (p Page) Title() string {
	for _, info := range Pages {
		if info.Page == p {
			return info.Title
		}
	}
	return string(p)
}

// Tone is the colour family of a badge.
type Tone string

// Badge tones.
const (
	ToneDanger  Tone = "danger"
	ToneWarning Tone = "warning"
	ToneSuccess Tone = "success"
	ToneDefault Tone = "default"
)

// Options tunes view computation.
type Options struct {
	// GaugeRadius is the radius of the correlation-depth ring.
	GaugeRadius float64
}

// DefaultOptions returns the standard options.
func DefaultOptions() Options {
	return Options{GaugeRadius: risk.DefaultGaugeRadius}
}

func (o Options) radius() float64 {
	if o.GaugeRadius <= 0 {
		return risk.DefaultGaugeRadius
	}
	return o.GaugeRadius
}

// Build computes the view model of one page. Every page builder tolerates a
// nil or partial analysis and reports it through the Empty field.
func Build(page Page, r *model.AnalysisResult, opts Options) (any, error) {
	switch page {
	case PageRiskGraphs:
		return RiskGraphs(r), nil
	case PagePersona:
		return PersonaExposure(r), nil
	case PageAttackVectors:
		return AttackVectors(r), nil
	case PagePhishing:
		return Phishing(r), nil
	case PageCorrelationDepth:
		return CorrelationDepth(r, opts), nil
	case PageVisibility:
		return Visibility(r), nil
	case PageTimeline:
		return Timeline(r), nil
	case PageWeightedRisk:
		return WeightedRisk(r), nil
	case PageDigitalTwin:
		return DigitalTwin(r), nil
	case PageHardening:
		return Hardening(r), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPage, page)
	}
}

// Snapshot is every page of one analysis, used by reports.
type Snapshot struct {
	AnalysisID string            `json:"analysis_id"`
	Timestamp  string            `json:"timestamp"`
	Recon      []model.ReconItem `json:"recon"`

	// EntityCount counts the displayable values of every entity category,
	// including categories the recon list does not show.
	EntityCount      int      `json:"entity_count"`
	EntityCategories []string `json:"entity_categories"`

	RiskGraphs       RiskGraphsView       `json:"risk_graphs"`
	Persona          PersonaView          `json:"persona"`
	AttackVectors    AttackVectorsView    `json:"attack_vectors"`
	Phishing         PhishingView         `json:"phishing"`
	CorrelationDepth CorrelationDepthView `json:"correlation_depth"`
	Visibility       VisibilityView       `json:"visibility"`
	Timeline         TimelineView         `json:"timeline"`
	WeightedRisk     WeightedRiskView     `json:"weighted_risk"`
	DigitalTwin      DigitalTwinView      `json:"digital_twin"`
	Hardening        HardeningView        `json:"hardening"`

	// ServerRiskLevel is the level computed by the analysis service's own
	// thresholds; empty when there is no score.
	ServerRiskLevel risk.Level `json:"server_risk_level,omitempty"`
}

// BuildSnapshot computes every page of r.
func BuildSnapshot(r *model.AnalysisResult, opts Options) Snapshot {
	entities := r.Entities()
	s := Snapshot{
		AnalysisID:       r.ID(),
		Timestamp:        r.Timestamp(),
		Recon:            model.BuildReconList(entities),
		EntityCount:      entities.Count(),
		EntityCategories: entities.Categories(),
		RiskGraphs:       RiskGraphs(r),
		Persona:          PersonaExposure(r),
		AttackVectors:    AttackVectors(r),
		Phishing:         Phishing(r),
		CorrelationDepth: CorrelationDepth(r, opts),
		Visibility:       Visibility(r),
		Timeline:         Timeline(r),
		WeightedRisk:     WeightedRisk(r),
		DigitalTwin:      DigitalTwin(r),
		Hardening:        Hardening(r),
	}
	if lvl, ok := risk.BackendRiskLevel(r.RiskScore()); ok {
		s.ServerRiskLevel = lvl
	}
	return s
}
