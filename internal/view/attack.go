package view

import (
	"github.com/nao1215/personashield/internal/model"
	"github.com/nao1215/personashield/internal/risk"
)

// UnknownVector is shown for attack vectors without a category.
const UnknownVector = "Unknown Vector"

// VectorCard is one attack vector.
type VectorCard struct {
	Category string         `json:"category"`
	Severity model.Severity `json:"severity"`
	Label    string         `json:"label"`
	Tone     Tone           `json:"tone"`
	Factors  []string       `json:"factors"`
}

// AttackVectorsView is the attack vectors page.
type AttackVectorsView struct {
	Empty bool         `json:"empty"`
	Tally risk.Tally   `json:"tally"`
	Cards []VectorCard `json:"cards"`
}

func severityTone(s model.Severity) Tone {
	switch s {
	case model.SeverityCritical, model.SeverityHigh:
		return ToneDanger
	case model.SeverityMedium:
		return ToneWarning
	case model.SeverityLow:
		return ToneSuccess
	default:
		return ToneDefault
	}
}

// AttackVectors shows the severity tally tiles and one card per vector.
func AttackVectors(r *model.AnalysisResult) AttackVectorsView {
	vectors := r.AttackVectors()
	if len(vectors) == 0 {
		return AttackVectorsView{Empty: true, Cards: []VectorCard{}}
	}

	cards := make([]VectorCard, 0, len(vectors))
	for _, v := range vectors {
		sev := risk.ClassifySeverity(v.Severity)
		category := v.Category
		if category == "" {
			category = UnknownVector
		}
		factors := v.ContributingFactors
		if factors == nil {
			factors = []string{}
		}
		cards = append(cards, VectorCard{
			Category: category,
			Severity: sev,
			Label:    sev.Label(),
			Tone:     severityTone(sev),
			Factors:  factors,
		})
	}
	return AttackVectorsView{
		Tally: risk.TallySeverities(vectors),
		Cards: cards,
	}
}
