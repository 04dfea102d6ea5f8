package risk

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/personashield/internal/model"
)

// RankedFactor is a score-breakdown entry prepared for display.
type RankedFactor struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Tier  Level   `json:"tier"`
}

var upper = cases.Upper(language.English)

// FactorLabel turns a factor key such as "location_exposure" into
// "LOCATION EXPOSURE".
func FactorLabel(key string) string {
	return upper.String(strings.ReplaceAll(key, "_", " "))
}

// FactorValue returns the numeric contribution of a factor. Non-numeric
// contributions count as zero so that they still appear in charts.
func FactorValue(f model.Factor) float64 {
	return f.Value.Or(0)
}

// Factors converts a breakdown into display entries in document order.
func Factors(breakdown []model.Factor) []RankedFactor {
	out := make([]RankedFactor, 0, len(breakdown))
	for _, f := range breakdown {
		v := FactorValue(f)
		out = append(out, RankedFactor{
			Key:   f.Key,
			Label: FactorLabel(f.Key),
			Value: v,
			Tier:  FactorTier(v),
		})
	}
	return out
}

// RankBreakdown sorts factors by value, largest first. Equal values keep
// their document order.
func RankBreakdown(breakdown []model.Factor) []RankedFactor {
	ranked := Factors(breakdown)
	slices.SortStableFunc(ranked, func(a, b RankedFactor) int {
		return cmp.Compare(b.Value, a.Value)
	})
	return ranked
}

// TopFactors returns at most n ranked factors.
func TopFactors(breakdown []model.Factor, n int) []RankedFactor {
	ranked := RankBreakdown(breakdown)
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Share returns value as a whole percentage of score, rounded half away
// from zero. It reports false when the score is absent or not positive.
func Share(value float64, score model.Number) (int, bool) {
	if !score.Valid || score.Value <= 0 {
		return 0, false
	}
	return int(math.Round(value / score.Value * 100)), true
}
