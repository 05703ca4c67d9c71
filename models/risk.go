package models

// RiskLevel represents the risk rating of a contract clause
type RiskLevel string

const (
	RiskRed   RiskLevel = "RED"
	RiskAmber RiskLevel = "AMBER"
	RiskGreen RiskLevel = "GREEN"
)

// RiskLevels lists all levels in precedence order (highest risk first).
// Scan order matters: ties and keyword scans must never under-report risk.
var RiskLevels = []RiskLevel{RiskRed, RiskAmber, RiskGreen}

// Priority returns the numeric priority used for weighted blending.
// RED=3, AMBER=2, GREEN=1.
func (r RiskLevel) Priority() float64 {
	switch r {
	case RiskRed:
		return 3
	case RiskAmber:
		return 2
	default:
		return 1
	}
}

// Valid reports whether the level is one of RED, AMBER, GREEN.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskRed, RiskAmber, RiskGreen:
		return true
	}
	return false
}

// RiskLevelFromPriority maps a weighted priority back to a risk level.
// Thresholds are empirically tuned, not derived: >=2.5 RED, >=1.5 AMBER,
// else GREEN. Keep in sync with PriorityThresholdRed/Amber.
func RiskLevelFromPriority(priority float64) RiskLevel {
	switch {
	case priority >= PriorityThresholdRed:
		return RiskRed
	case priority >= PriorityThresholdAmber:
		return RiskAmber
	default:
		return RiskGreen
	}
}

// Classification tuning constants. These values are tunable configuration,
// carried over from the reference weighting rather than re-derived.
const (
	// PriorityThresholdRed and PriorityThresholdAmber convert a weighted
	// priority back into a discrete level.
	PriorityThresholdRed   = 2.5
	PriorityThresholdAmber = 1.5

	// DefaultRuleWeight and DefaultGenerativeWeight split trust between the
	// keyword scorer and the retrieval+generation evidence. They must sum
	// to 1.
	DefaultRuleWeight       = 0.4
	DefaultGenerativeWeight = 0.6

	// GenerativeVoteShare and PrecedentConsensusShare split the generative
	// weight between the model's own vote and the raw precedent consensus,
	// so precedent evidence influences the outcome even when the generative
	// path ran.
	GenerativeVoteShare     = 0.7
	PrecedentConsensusShare = 0.3

	// NeutralPriority is the AMBER boundary used when no precedent carries
	// any retrieval weight.
	NeutralPriority = 1.5

	// MaxCombinedConfidence caps every blended confidence score.
	MaxCombinedConfidence = 0.95
)
