package reveal

// Stage is one step of the attack walkthrough.
type Stage int

const (
	// StageReconnaissance reveals the collected entities one by one.
	StageReconnaissance Stage = iota
	// StageProfiling types out the adversary narrative.
	StageProfiling
	// StageWeaponization types out the phishing email body.
	StageWeaponization
	// StageImpact counts up to the risk score.
	StageImpact
)

// StageCount is the number of stages.
const StageCount = 4

// String returns the stage title.
func (s Stage) String() string {
	switch s {
	case StageReconnaissance:
		return "Reconnaissance"
	case StageProfiling:
		return "Profiling"
	case StageWeaponization:
		return "Weaponization"
	case StageImpact:
		return "Impact"
	default:
		return "Unknown"
	}
}

// Tagline returns the sentence shown under the stage title.
func (s Stage) Tagline() string {
	switch s {
	case StageReconnaissance:
		return "An attacker begins collecting your data..."
	case StageProfiling:
		return "They build a psychological profile of you..."
	case StageWeaponization:
		return "They craft a targeted phishing attack..."
	case StageImpact:
		return "The damage your exposure makes possible."
	default:
		return ""
	}
}
