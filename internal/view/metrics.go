package view

import (
	"fmt"

	"github.com/nao1215/personashield/internal/model"
	"github.com/nao1215/personashield/internal/risk"
)

// ChartColors are cycled over breakdown factors in pie charts.
var ChartColors = []string{"#38bdf8", "#34d399", "#fbbf24", "#f43f5e", "#818cf8", "#e879f9"}

// FactorRow is one row of the score-breakdown table.
type FactorRow struct {
	Key   string     `json:"key"`
	Label string     `json:"label"`
	Value float64    `json:"value"`
	Text  string     `json:"text"`
	Tier  risk.Level `json:"tier"`
	Tone  Tone       `json:"tone"`
	Color string     `json:"color"`
}

// RiskGraphsView is the score-breakdown chart page.
type RiskGraphsView struct {
	Empty   bool        `json:"empty"`
	Factors []FactorRow `json:"factors"`
}

func tierTone(l risk.Level) Tone {
	switch l {
	case risk.LevelCritical:
		return ToneDanger
	case risk.LevelHigh:
		return ToneWarning
	default:
		return ToneSuccess
	}
}

// RiskGraphs lists the breakdown factors in document order. The page is
// empty unless the analysis carries a risk assessment with a breakdown.
func RiskGraphs(r *model.AnalysisResult) RiskGraphsView {
	ra, ok := r.Risk()
	if !ok || !ra.HasBreakdown {
		return RiskGraphsView{Empty: true, Factors: []FactorRow{}}
	}

	factors := risk.Factors(ra.ScoreBreakdown)
	rows := make([]FactorRow, 0, len(factors))
	for i, f := range factors {
		rows = append(rows, FactorRow{
			Key:   f.Key,
			Label: f.Label,
			Value: f.Value,
			Text:  fmt.Sprintf("%.2f", f.Value),
			Tier:  f.Tier,
			Tone:  tierTone(f.Tier),
			Color: ChartColors[i%len(ChartColors)],
		})
	}
	return RiskGraphsView{Factors: rows}
}

// MatrixEntry is one ranked factor of the weighted-risk page.
type MatrixEntry struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
	// Share is the factor's percentage of the total score. It is only
	// meaningful when HasShare is true.
	Share    int  `json:"share"`
	HasShare bool `json:"has_share"`
}

// ShareText returns "25%", or "-" when there is no share.
func (m MatrixEntry) ShareText() string {
	if !m.HasShare {
		return "-"
	}
	return fmt.Sprintf("%d%%", m.Share)
}

// WeightedRiskView is the weighted risk score page.
type WeightedRiskView struct {
	Empty  bool          `json:"empty"`
	Score  float64       `json:"score"`
	Hero   string        `json:"hero"`
	Level  risk.Level    `json:"level"`
	Tone   Tone          `json:"tone"`
	Matrix []MatrixEntry `json:"matrix"`
}

func levelTone(l risk.Level) Tone {
	switch l {
	case risk.LevelCritical:
		return ToneDanger
	case risk.LevelHigh:
		return ToneWarning
	default:
		return ToneDefault
	}
}

// WeightedRisk shows the score with its level and the factors ranked by
// contribution. The page is empty unless the analysis carries a risk
// assessment with a breakdown; a missing score then counts as zero.
func WeightedRisk(r *model.AnalysisResult) WeightedRiskView {
	ra, ok := r.Risk()
	if !ok || !ra.HasBreakdown {
		return WeightedRiskView{Empty: true, Matrix: []MatrixEntry{}}
	}

	score := model.Num(ra.RiskScore.Or(0))
	level, _ := risk.RiskLevel(score)

	ranked := risk.RankBreakdown(ra.ScoreBreakdown)
	matrix := make([]MatrixEntry, 0, len(ranked))
	for _, f := range ranked {
		share, ok := risk.Share(f.Value, score)
		matrix = append(matrix, MatrixEntry{
			Key:      f.Key,
			Label:    f.Label,
			Value:    f.Value,
			Share:    share,
			HasShare: ok,
		})
	}

	return WeightedRiskView{
		Score:  score.Value,
		Hero:   score.String(),
		Level:  level,
		Tone:   levelTone(level),
		Matrix: matrix,
	}
}

// CorrelationDepthView is the correlation depth gauge page.
type CorrelationDepthView struct {
	Empty   bool               `json:"empty"`
	Depth   float64            `json:"depth"`
	Display string             `json:"display"`
	Percent float64            `json:"percent"`
	Gauge   risk.GaugeGeometry `json:"gauge"`
}

// CorrelationDepth renders the depth on a ring gauge scaled to 10.
func CorrelationDepth(r *model.AnalysisResult, opts Options) CorrelationDepthView {
	ra, _ := r.Risk()
	depth := ra.CorrelationDepth
	pct, ok := risk.Percent(depth, risk.MaxCorrelationDepth)
	if !ok {
		return CorrelationDepthView{Empty: true}
	}
	return CorrelationDepthView{
		Depth:   depth.Value,
		Display: fmt.Sprintf("%s / %d", depth, risk.MaxCorrelationDepth),
		Percent: pct,
		Gauge:   risk.Gauge(pct, opts.radius()),
	}
}

// VisibilityView is the visibility score page.
type VisibilityView struct {
	Empty    bool       `json:"empty"`
	Score    float64    `json:"score"`
	Percent  float64    `json:"percent"`
	Exposure risk.Level `json:"exposure"`
	Tone     Tone       `json:"tone"`
}

// Visibility renders the visibility score as a bar scaled to 10.
func Visibility(r *model.AnalysisResult) VisibilityView {
	ra, _ := r.Risk()
	score := ra.VisibilityScore
	pct, ok := risk.Percent(score, risk.MaxVisibilityScore)
	if !ok {
		return VisibilityView{Empty: true}
	}
	exposure, _ := risk.VisibilityExposure(score)

	tone := ToneSuccess
	switch exposure {
	case risk.LevelCritical:
		tone = ToneDanger
	case risk.LevelModerate:
		tone = ToneWarning
	}
	return VisibilityView{
		Score:    score.Value,
		Percent:  pct,
		Exposure: exposure,
		Tone:     tone,
	}
}

// PhaseMarker places a timeline phase on the bar.
type PhaseMarker struct {
	risk.Phase
	// Position is the marker offset along the bar in percent.
	Position float64 `json:"position"`
	Active   bool    `json:"active"`
	Current  bool    `json:"current"`
}

// TimelineView is the exposure timeline page.
type TimelineView struct {
	Empty        bool          `json:"empty"`
	Years        float64       `json:"years"`
	Percent      float64       `json:"percent"`
	Phases       []PhaseMarker `json:"phases"`
	CurrentPhase string        `json:"current_phase"`
}

// Timeline renders the years to full reconstruction against the phases.
func Timeline(r *model.AnalysisResult) TimelineView {
	ra, _ := r.Risk()
	years := ra.TimelineYears
	pct, ok := risk.Percent(years, risk.MaxTimelineYears)
	if !ok {
		return TimelineView{Empty: true, Phases: []PhaseMarker{}}
	}

	current := risk.CurrentPhase(years)
	markers := make([]PhaseMarker, 0, len(risk.TimelinePhases))
	for i, p := range risk.TimelinePhases {
		markers = append(markers, PhaseMarker{
			Phase:    p,
			Position: p.Year / risk.MaxTimelineYears * 100,
			Active:   years.Value >= p.Year,
			Current:  i == current,
		})
	}
	return TimelineView{
		Years:        years.Value,
		Percent:      pct,
		Phases:       markers,
		CurrentPhase: risk.CurrentPhaseLabel(years),
	}
}
