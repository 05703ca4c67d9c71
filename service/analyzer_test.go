package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redline-backend/models"
)

// scriptedCompleter returns a fixed completion, or an error, for every call.
type scriptedCompleter struct {
	reply      string
	err        error
	calls      int
	lastPrompt string
}

func (s *scriptedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.calls++
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func precedent(level models.RiskLevel, similarity, strength float64) models.RetrievedPrecedent {
	return models.RetrievedPrecedent{
		Clause: models.ReferenceClause{
			Text:              "Reference clause text used in testing of precedent weighting behavior.",
			RiskLevel:         level,
			ContractDomain:    "service",
			PrecedentStrength: strength,
		},
		Similarity: similarity,
	}
}

func TestFallbackVoteNoPrecedentsDefaultsAmber(t *testing.T) {
	vote := FallbackVote(nil)

	assert.Equal(t, models.RiskAmber, vote.RiskLevel)
	assert.InDelta(t, 0.6, vote.Confidence, 1e-9)
	assert.True(t, vote.FromFallback)
	assert.NotEmpty(t, vote.Explanation)
}

func TestFallbackVoteUnanimousRedPrecedents(t *testing.T) {
	precedents := []models.RetrievedPrecedent{
		precedent(models.RiskRed, 0.9, 0.8),
		precedent(models.RiskRed, 0.8, 0.9),
	}

	vote := FallbackVote(precedents)

	assert.Equal(t, models.RiskRed, vote.RiskLevel)
	assert.InDelta(t, 0.9, vote.Confidence, 1e-9) // full agreement
	assert.True(t, vote.FromFallback)
}

func TestFallbackVoteWeighsBySimilarityAndStrength(t *testing.T) {
	// the RED precedent carries nearly all the retrieval weight
	precedents := []models.RetrievedPrecedent{
		precedent(models.RiskRed, 0.9, 1.0),
		precedent(models.RiskGreen, 0.1, 1.0),
	}

	vote := FallbackVote(precedents)

	assert.Equal(t, models.RiskRed, vote.RiskLevel)
	assert.InDelta(t, 0.75, vote.Confidence, 1e-9) // labels split 1/1
}

func TestFallbackVoteZeroWeightIsAmberBoundary(t *testing.T) {
	precedents := []models.RetrievedPrecedent{
		precedent(models.RiskRed, 0, 0.9),
		precedent(models.RiskGreen, 0, 0.9),
	}

	assert.InDelta(t, models.NeutralPriority, PrecedentConsensusPriority(precedents), 1e-9)
	assert.Equal(t, models.RiskAmber, PrecedentConsensusLevel(precedents))
}

func TestAnalyzerParsesRiskKeyword(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  models.RiskLevel
	}{
		{"red", "RED: this exposes the company to unbounded claims", models.RiskRed},
		{"amber", "I would call this AMBER and suggest a closer look", models.RiskAmber},
		{"yellow alias", "yellow, the clause is one-sided", models.RiskAmber},
		{"green", "GREEN, this is boilerplate", models.RiskGreen},
		{"unparseable", "unable to say anything useful", models.RiskAmber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := NewGenerativeAnalyzer(&scriptedCompleter{reply: tt.reply})

			vote := analyzer.Analyze(context.Background(), "Some clause text.", "", nil)

			assert.Equal(t, tt.want, vote.RiskLevel)
			assert.False(t, vote.FromFallback)
		})
	}
}

func TestAnalyzerConfidenceHedges(t *testing.T) {
	base := NewGenerativeAnalyzer(&scriptedCompleter{reply: "GREEN, boilerplate"})
	high := NewGenerativeAnalyzer(&scriptedCompleter{reply: "GREEN with high confidence"})
	low := NewGenerativeAnalyzer(&scriptedCompleter{reply: "GREEN but low confidence given the gaps"})

	ctx := context.Background()
	assert.InDelta(t, 0.8, base.Analyze(ctx, "text", "", nil).Confidence, 1e-9)
	assert.InDelta(t, 0.9, high.Analyze(ctx, "text", "", nil).Confidence, 1e-9)
	assert.InDelta(t, 0.6, low.Analyze(ctx, "text", "", nil).Confidence, 1e-9)
}

func TestAnalyzerConfidenceBoostedBySimilarityAndCapped(t *testing.T) {
	analyzer := NewGenerativeAnalyzer(&scriptedCompleter{reply: "GREEN with high confidence"})
	precedents := []models.RetrievedPrecedent{
		precedent(models.RiskGreen, 1.0, 0.9),
		precedent(models.RiskGreen, 1.0, 0.9),
	}

	vote := analyzer.Analyze(context.Background(), "text", "", precedents)

	// 0.9 base + 0.1 boost would be 1.0; the cap holds it down
	assert.InDelta(t, models.MaxCombinedConfidence, vote.Confidence, 1e-9)
}

func TestAnalyzerFailingCompleterFallsBack(t *testing.T) {
	completer := &scriptedCompleter{err: errors.New("model overloaded")}
	analyzer := NewGenerativeAnalyzer(completer)
	precedents := []models.RetrievedPrecedent{
		precedent(models.RiskRed, 0.9, 0.9),
	}

	vote := analyzer.Analyze(context.Background(), "text", "", precedents)

	assert.Equal(t, 1, completer.calls)
	assert.True(t, vote.FromFallback)
	assert.Equal(t, models.RiskRed, vote.RiskLevel)
}

func TestAnalyzerNilCompleterFallsBack(t *testing.T) {
	analyzer := NewGenerativeAnalyzer(nil)

	vote := analyzer.Analyze(context.Background(), "text", "", nil)

	assert.True(t, vote.FromFallback)
	assert.Equal(t, models.RiskAmber, vote.RiskLevel)
}

func TestAnalyzerPromptContainsClauseAndPrecedents(t *testing.T) {
	precedents := []models.RetrievedPrecedent{
		precedent(models.RiskRed, 0.9, 0.9),
		precedent(models.RiskAmber, 0.8, 0.7),
		precedent(models.RiskGreen, 0.7, 0.6),
	}

	prompt := buildRiskAnalysisPrompt("The Vendor shall assume all liability.", "vendor services agreement", precedents)

	assert.Contains(t, prompt, "The Vendor shall assume all liability.")
	assert.Contains(t, prompt, "vendor services agreement")
	// only the top precedents are quoted
	require.Equal(t, 2, strings.Count(prompt, "[RED risk")+strings.Count(prompt, "[AMBER risk")+strings.Count(prompt, "[GREEN risk"))
}

func TestAnalyzerExplanationTrimmed(t *testing.T) {
	analyzer := NewGenerativeAnalyzer(&scriptedCompleter{reply: "GREEN " + strings.Repeat("verbose rationale ", 40)})

	vote := analyzer.Analyze(context.Background(), "text", "", nil)

	assert.LessOrEqual(t, len(vote.Explanation), maxVoteExplanation)
}

func TestAnalyzerExplanationTrimKeepsRunesIntact(t *testing.T) {
	// accented runes positioned so a byte-indexed cut would land inside one
	analyzer := NewGenerativeAnalyzer(&scriptedCompleter{reply: "GREEN " + strings.Repeat("aé", 150)})

	vote := analyzer.Analyze(context.Background(), "text", "", nil)

	assert.True(t, utf8.ValidString(vote.Explanation))
	assert.Equal(t, maxVoteExplanation, utf8.RuneCountInString(vote.Explanation))
}

func TestAnalyzerPromptExcerptKeepsRunesIntact(t *testing.T) {
	long := strings.Repeat("aéa", 80)
	completer := &scriptedCompleter{reply: "GREEN"}
	analyzer := NewGenerativeAnalyzer(completer)

	precedents := []models.RetrievedPrecedent{
		{
			Clause:     models.ReferenceClause{Text: long, RiskLevel: models.RiskRed, ContractDomain: "service"},
			Similarity: 0.9,
		},
	}
	analyzer.Analyze(context.Background(), "text", "", precedents)

	assert.True(t, utf8.ValidString(completer.lastPrompt))
	assert.Contains(t, completer.lastPrompt, "...")
}
