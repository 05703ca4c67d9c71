package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redline-backend/models"
)

// stubRetriever returns a fixed result or error for every query.
type stubRetriever struct {
	precedents []models.RetrievedPrecedent
	err        error
}

func (s *stubRetriever) Retrieve(ctx context.Context, queryText string, k int) ([]models.RetrievedPrecedent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.precedents, nil
}

// echoCompleter answers with the risk level matching a marker in the prompt,
// standing in for a model that agrees with the obvious reading of a clause.
type echoCompleter struct{}

func (echoCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "unlimited liability"):
		return "RED: unbounded exposure", nil
	case strings.Contains(lower, "arbitration"):
		return "AMBER: needs review", nil
	default:
		return "GREEN: standard language", nil
	}
}

func redClause() string {
	return "This agreement imposes unlimited liability and indemnification obligations on the Vendor."
}

func amberClause() string {
	return "Any dispute arising under this agreement shall be subject to binding arbitration."
}

func greenClause() string {
	return "The parties shall cooperate and act in good faith at all times."
}

func TestClassifyClauseNeverFailsAndStaysInRange(t *testing.T) {
	classifier := NewClassifierService()

	for _, text := range []string{"", "short", redClause(), amberClause(), greenClause()} {
		result := classifier.ClassifyClause(context.Background(), text, "")

		assert.True(t, result.RiskLevel.Valid(), "level for %q", text)
		assert.GreaterOrEqual(t, result.Confidence, 0.0)
		assert.LessOrEqual(t, result.Confidence, 1.0)
		assert.NotEmpty(t, result.Explanation)
	}
}

func TestClassifyClauseRetrievalUnavailableDegrades(t *testing.T) {
	classifier := NewClassifierService(
		ClassifierWithRetriever(&stubRetriever{err: ErrRetrievalUnavailable}),
	)

	result := classifier.ClassifyClause(context.Background(), redClause(), "")

	assert.True(t, result.RiskLevel.Valid())
	assert.Empty(t, result.Precedents)
	assert.True(t, result.GenerativeVote.FromFallback)
}

func TestClassifyClauseUsesRetrievedPrecedents(t *testing.T) {
	precedents := []models.RetrievedPrecedent{
		precedent(models.RiskRed, 0.9, 0.9),
		precedent(models.RiskRed, 0.85, 0.8),
	}
	classifier := NewClassifierService(
		ClassifierWithRetriever(&stubRetriever{precedents: precedents}),
	)

	result := classifier.ClassifyClause(context.Background(), redClause(), "")

	assert.Equal(t, models.RiskRed, result.RiskLevel)
	assert.Len(t, result.Precedents, maxPromptPrecedents)
}

func TestClassifyClauseGenerativeAgreementGoesRed(t *testing.T) {
	classifier := NewClassifierService(
		ClassifierWithAnalyzer(NewGenerativeAnalyzer(echoCompleter{})),
	)

	result := classifier.ClassifyClause(context.Background(), redClause(), "")

	assert.Equal(t, models.RiskRed, result.RiskLevel)
	assert.False(t, result.GenerativeVote.FromFallback)
}

func TestClassifyDocumentCountsAndOverall(t *testing.T) {
	classifier := NewClassifierService(
		ClassifierWithAnalyzer(NewGenerativeAnalyzer(echoCompleter{})),
		ClassifierWithWorkers(3),
	)

	clauses := []string{
		redClause(), redClause(), redClause(),
		amberClause(), amberClause(),
		greenClause(), greenClause(), greenClause(), greenClause(), greenClause(),
	}

	report, err := classifier.ClassifyDocument(context.Background(), clauses, "")
	require.NoError(t, err)

	assert.Equal(t, 10, report.TotalClauses)
	assert.Equal(t, 3, report.RiskSummary[models.RiskRed])
	assert.Equal(t, 2, report.RiskSummary[models.RiskAmber])
	assert.Equal(t, 5, report.RiskSummary[models.RiskGreen])
	assert.InDelta(t, 30.0, report.RiskPercentage[models.RiskRed], 1e-9)
	assert.InDelta(t, 20.0, report.RiskPercentage[models.RiskAmber], 1e-9)
	assert.InDelta(t, 50.0, report.RiskPercentage[models.RiskGreen], 1e-9)
	assert.Equal(t, models.RiskRed, report.OverallRisk)

	// input order preserved despite concurrent classification
	require.Len(t, report.ClassifiedClauses, len(clauses))
	for i, clause := range clauses {
		assert.Equal(t, clause, report.ClassifiedClauses[i].ClauseText)
	}

	assert.Contains(t, report.Recommendations, "3 high-risk clauses require immediate attention")
	assert.Contains(t, report.Recommendations, "Recommend comprehensive legal review before signing")
}

func TestClassifyDocumentInvariants(t *testing.T) {
	classifier := NewClassifierService()
	clauses := []string{redClause(), amberClause(), greenClause(), "miscellaneous text about nothing in particular"}

	report, err := classifier.ClassifyDocument(context.Background(), clauses, "")
	require.NoError(t, err)

	var summed int
	var pct float64
	for _, level := range models.RiskLevels {
		summed += report.RiskSummary[level]
		pct += report.RiskPercentage[level]
	}
	assert.Equal(t, len(clauses), summed)
	assert.InDelta(t, 100.0, pct, 0.5)
}

func TestClassifyDocumentEmptyIsGreen(t *testing.T) {
	classifier := NewClassifierService()

	report, err := classifier.ClassifyDocument(context.Background(), nil, "")
	require.NoError(t, err)

	assert.Equal(t, models.RiskGreen, report.OverallRisk)
	assert.Zero(t, report.TotalClauses)
	assert.Contains(t, report.Recommendations, "Document appears acceptable with standard risk levels")
}

func TestClassifyDocumentAllGenerativeCallsFail(t *testing.T) {
	classifier := NewClassifierService(
		ClassifierWithAnalyzer(NewGenerativeAnalyzer(&scriptedCompleter{err: errors.New("quota exceeded")})),
	)
	clauses := []string{redClause(), amberClause(), greenClause()}

	report, err := classifier.ClassifyDocument(context.Background(), clauses, "")
	require.NoError(t, err)

	require.Len(t, report.ClassifiedClauses, len(clauses))
	for _, result := range report.ClassifiedClauses {
		assert.True(t, result.GenerativeVote.FromFallback)
		assert.True(t, result.RiskLevel.Valid())
		assert.NotEmpty(t, result.Explanation)
		assert.NotEmpty(t, result.Recommendations)
	}
}

func TestClassifyDocumentCancelledContext(t *testing.T) {
	classifier := NewClassifierService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := classifier.ClassifyDocument(ctx, []string{greenClause()}, "")

	assert.ErrorIs(t, err, ErrDocumentClassificationFailed)
}
