package risk

import (
	"strings"

	"github.com/nao1215/personashield/internal/model"
)

// Severity keywords matched as case-insensitive substrings. Upstream labels
// are free text such as "High Risk" or "medium-severity".
const (
	keywordHigh   = "high"
	keywordMedium = "medium"
	keywordLow    = "low"
)

// ClassifySeverity maps a free-text severity label onto a tier. The first
// keyword found wins, checked in the order high, medium, low:
//
//	"high"   -> SeverityCritical
//	"medium" -> SeverityMedium (shown as "Moderate")
//	"low"    -> SeverityLow
//	other    -> SeverityInfo
func ClassifySeverity(label string) model.Severity {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, keywordHigh):
		return model.SeverityCritical
	case strings.Contains(l, keywordMedium):
		return model.SeverityMedium
	case strings.Contains(l, keywordLow):
		return model.SeverityLow
	default:
		return model.SeverityInfo
	}
}

// Tally holds the summary tile counts for attack vectors.
type Tally struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Total returns the sum of the three buckets. A vector whose label matches
// several keywords is counted once per bucket, so Total can exceed the
// number of vectors.
func (t Tally) Total() int {
	return t.High + t.Medium + t.Low
}

// TallySeverities counts vectors per keyword independently of
// ClassifySeverity: a label such as "High and Medium" increments both High
// and Medium.
func TallySeverities(vectors []model.AttackVector) Tally {
	var t Tally
	for _, v := range vectors {
		l := strings.ToLower(v.Severity)
		if strings.Contains(l, keywordHigh) {
			t.High++
		}
		if strings.Contains(l, keywordMedium) {
			t.Medium++
		}
		if strings.Contains(l, keywordLow) {
			t.Low++
		}
	}
	return t
}
