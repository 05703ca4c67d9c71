package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redline-backend/models"
)

func TestRuleScorerDeterministic(t *testing.T) {
	scorer := NewRuleScorer()
	text := "The Contractor shall indemnify and hold harmless the Company against any and all claims."

	first := scorer.Score(text)
	second := scorer.Score(text)

	assert.Equal(t, first, second)
}

func TestRuleScorerIndemnificationIsRed(t *testing.T) {
	scorer := NewRuleScorer()

	vote := scorer.Score("The Company shall indemnify, defend, and hold harmless the Client from and against any and all claims, damages, and expenses.")

	assert.Equal(t, models.RiskRed, vote.RiskLevel)
	assert.Contains(t, vote.MatchedKeywords, "hold harmless")
	assert.Greater(t, vote.Confidence, 0.6)
}

func TestRuleScorerBestEffortsIsGreen(t *testing.T) {
	scorer := NewRuleScorer()

	vote := scorer.Score("Both parties agree to use reasonable best efforts.")

	assert.Equal(t, models.RiskGreen, vote.RiskLevel)
	assert.Zero(t, vote.Scores[models.RiskRed])
	assert.Zero(t, vote.Scores[models.RiskAmber])
	assert.NotZero(t, vote.Scores[models.RiskGreen])
}

func TestRuleScorerTieBreaksToRed(t *testing.T) {
	scorer := NewRuleScorer()

	// one RED table hit, one AMBER table hit
	vote := scorer.Score("This penalty clause shall be settled via arbitration.")

	require.Equal(t, vote.Scores[models.RiskRed], vote.Scores[models.RiskAmber])
	assert.Equal(t, models.RiskRed, vote.RiskLevel)
}

func TestRuleScorerNoMatchesDefaultsGreen(t *testing.T) {
	scorer := NewRuleScorer()

	vote := scorer.Score("The sky was a pleasant shade of blue that afternoon.")

	assert.Equal(t, models.RiskGreen, vote.RiskLevel)
	assert.Equal(t, 0.5, vote.Confidence)
	assert.Empty(t, vote.MatchedKeywords)
	assert.Equal(t, "No specific risk indicators found in standard keyword analysis.", vote.Explanation)
}

func TestRuleScorerConfidenceScalesWithScoreAndCaps(t *testing.T) {
	scorer := NewRuleScorer()

	single := scorer.Score("This agreement requires arbitration.")
	assert.InDelta(t, 0.7, single.Confidence, 1e-9)

	loaded := scorer.Score("Unlimited liability, personal guarantee, liquidated damages, penalty clause, forfeiture, punitive damages, indemnification, and hold harmless obligations apply.")
	assert.Equal(t, models.RiskRed, loaded.RiskLevel)
	assert.Equal(t, 0.9, loaded.Confidence)
}

func TestRuleScorerExplanationShowsTopKeywords(t *testing.T) {
	scorer := NewRuleScorer()

	vote := scorer.Score("Unlimited liability and a personal guarantee with liquidated damages and a penalty clause.")

	require.Equal(t, models.RiskRed, vote.RiskLevel)
	assert.Contains(t, vote.Explanation, "High-risk terms detected")
	assert.Contains(t, vote.Explanation, "unlimited liability")
}
