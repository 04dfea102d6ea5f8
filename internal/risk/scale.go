package risk

import (
	"math"

	"github.com/nao1215/personashield/internal/model"
)

// Scale maxima of the secondary metrics. All three are scored 0 to 10.
const (
	MaxCorrelationDepth = 10
	MaxVisibilityScore  = 10
	MaxTimelineYears    = 10
)

// Level is a categorical bucket shown next to a number.
type Level string

// Levels used across the dashboard.
const (
	LevelCritical Level = "Critical"
	LevelHigh     Level = "High"
	LevelModerate Level = "Moderate"
	LevelLow      Level = "Low"
	LevelNormal   Level = "Normal"
)

// String returns the level text.
func (l Level) String() string {
	return string(l)
}

// Percent normalizes value against max and clamps the result to [0, 100].
// It reports false when the value is absent or max is not positive.
func Percent(value model.Number, max float64) (float64, bool) {
	if !value.Valid || max <= 0 || math.IsNaN(max) || math.IsInf(max, 0) {
		return 0, false
	}
	return math.Min(100, math.Max(0, value.Value/max*100)), true
}

// RiskLevel buckets a 0-100 risk score with strictly-greater boundaries:
// above 75 is Critical, above 50 High, above 25 Moderate, otherwise Low.
// A score of exactly 75 is therefore High.
func RiskLevel(score model.Number) (Level, bool) {
	if !score.Valid {
		return "", false
	}
	switch s := score.Value; {
	case s > 75:
		return LevelCritical, true
	case s > 50:
		return LevelHigh, true
	case s > 25:
		return LevelModerate, true
	default:
		return LevelLow, true
	}
}

// BackendRiskLevel reproduces the analysis service's own bucketing
// (<= 30 Low, <= 60 Moderate, otherwise High). The dashboard does not use
// it for display; reports show it next to RiskLevel when the two disagree.
func BackendRiskLevel(score model.Number) (Level, bool) {
	if !score.Valid {
		return "", false
	}
	switch s := score.Value; {
	case s <= 30:
		return LevelLow, true
	case s <= 60:
		return LevelModerate, true
	default:
		return LevelHigh, true
	}
}

// FactorTier classifies a single score-breakdown contribution:
// above 15 is Critical, above 10 High, otherwise Normal.
func FactorTier(value float64) Level {
	switch {
	case value > 15:
		return LevelCritical
	case value > 10:
		return LevelHigh
	default:
		return LevelNormal
	}
}

// VisibilityExposure classifies a 0-10 visibility score:
// above 7 is Critical, above 4 Moderate, otherwise Low.
func VisibilityExposure(score model.Number) (Level, bool) {
	if !score.Valid {
		return "", false
	}
	switch s := score.Value; {
	case s > 7:
		return LevelCritical, true
	case s > 4:
		return LevelModerate, true
	default:
		return LevelLow, true
	}
}

// Phase is one step on the exposure timeline.
type Phase struct {
	Year        float64 `json:"year"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
}

// InitializationPhase is reported when the years fall before the first phase.
const InitializationPhase = "Initialization"

// TimelinePhases are the reconstruction phases by elapsed years.
var TimelinePhases = []Phase{
	{Year: 0, Label: "Discovery", Description: "Initial node identification and OSINT gathering."},
	{Year: 3, Label: "Correlation", Description: "Active linkage between disjointed professional data."},
	{Year: 6, Label: "Profiling", Description: "Synthetic personality modeling and vector mapping."},
	{Year: 10, Label: "Saturation", Description: "Full digital identity reconstruction."},
}

// CurrentPhase returns the index of the phase whose range contains years,
// or -1 when years is absent or before the first phase. The last phase is
// open-ended.
func CurrentPhase(years model.Number) int {
	if !years.Valid {
		return -1
	}
	for i, p := range TimelinePhases {
		if years.Value < p.Year {
			continue
		}
		if i+1 == len(TimelinePhases) || years.Value < TimelinePhases[i+1].Year {
			return i
		}
	}
	return -1
}

// CurrentPhaseLabel returns the label of CurrentPhase, falling back to
// InitializationPhase.
func CurrentPhaseLabel(years model.Number) string {
	i := CurrentPhase(years)
	if i < 0 {
		return InitializationPhase
	}
	return TimelinePhases[i].Label
}
