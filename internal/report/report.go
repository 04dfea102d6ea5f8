package report

import (
	"time"

	"github.com/nao1215/personashield/internal/model"
	"github.com/nao1215/personashield/internal/pdfmeta"
	"github.com/nao1215/personashield/internal/risk"
	"github.com/nao1215/personashield/internal/view"
)

// topFactorCount is the number of breakdown factors kept in a Summary.
const topFactorCount = 3

// Report is everything a writer renders for one analysis.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`

	// RiskScore and RiskLevel are read from the analysis directly, so they
	// are present even when the score breakdown is missing.
	RiskScore model.Number `json:"risk_score"`
	RiskLevel risk.Level   `json:"risk_level,omitempty"`

	Dashboard view.Snapshot `json:"dashboard"`

	// Inspection is the local pre-flight result of the uploaded document,
	// nil when the report is built from history alone.
	Inspection *pdfmeta.Result `json:"inspection,omitempty"`
}

// New builds a Report for r.
func New(r *model.AnalysisResult, opts view.Options) *Report {
	score := r.RiskScore()
	level, _ := risk.RiskLevel(score)
	return &Report{
		GeneratedAt: time.Now(),
		RiskScore:   score,
		RiskLevel:   level,
		Dashboard:   view.BuildSnapshot(r, opts),
	}
}

// WithInspection attaches a pre-flight result and returns the report.
func (r *Report) WithInspection(res *pdfmeta.Result) *Report {
	r.Inspection = res
	return r
}

// Findings returns the pre-flight findings, or nil without an inspection.
func (r *Report) Findings() []model.Finding {
	if r.Inspection == nil {
		return nil
	}
	return r.Inspection.Findings
}

// FindingsBySeverity returns the pre-flight findings of one severity.
func (r *Report) FindingsBySeverity(sev model.Severity) []model.Finding {
	var out []model.Finding
	for _, f := range r.Findings() {
		if f.Severity == sev {
			out = append(out, f)
		}
	}
	return out
}

// Summary is the short form of a Report used for quick overviews and
// history listings.
type Summary struct {
	AnalysisID      string             `json:"analysis_id"`
	Timestamp       string             `json:"timestamp,omitempty"`
	RiskScore       model.Number       `json:"risk_score"`
	RiskLevel       risk.Level         `json:"risk_level,omitempty"`
	ServerRiskLevel risk.Level         `json:"server_risk_level,omitempty"`
	TopFactors      []view.MatrixEntry `json:"top_factors"`
	Tally           risk.Tally         `json:"tally"`
	Entities        int                `json:"entities"`
	EntityTypes     []string           `json:"entity_types"`
	Findings        int                `json:"findings"`
}

// NewSummary condenses rep.
func NewSummary(rep *Report) *Summary {
	matrix := rep.Dashboard.WeightedRisk.Matrix
	top := matrix[:min(topFactorCount, len(matrix))]
	return &Summary{
		AnalysisID:      rep.Dashboard.AnalysisID,
		Timestamp:       rep.Dashboard.Timestamp,
		RiskScore:       rep.RiskScore,
		RiskLevel:       rep.RiskLevel,
		ServerRiskLevel: rep.Dashboard.ServerRiskLevel,
		TopFactors:      append([]view.MatrixEntry{}, top...),
		Tally:           rep.Dashboard.AttackVectors.Tally,
		Entities:        rep.Dashboard.EntityCount,
		EntityTypes:     rep.Dashboard.EntityCategories,
		Findings:        len(rep.Findings()),
	}
}

// LevelLine describes the dashboard level next to the level the analysis
// service derives with its own thresholds, e.g. "Critical (service: High)".
func LevelLine(level, server risk.Level) string {
	switch {
	case level == "":
		return "No data"
	case server == "" || server == level:
		return level.String()
	default:
		return level.String() + " (service: " + server.String() + ")"
	}
}

// scoreText formats a score for display.
func scoreText(n model.Number) string {
	if !n.Valid {
		return "No data"
	}
	return n.String()
}
