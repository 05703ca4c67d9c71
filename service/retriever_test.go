package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redline-backend/models"
)

// fixedEmbedder returns the same vector for every input.
type fixedEmbedder struct {
	vector []float64
	err    error
}

func (f *fixedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

// recordingIndex captures the limit it was asked for.
type recordingIndex struct {
	clauses   []models.ReferenceClause
	err       error
	lastLimit int
}

func (r *recordingIndex) Search(ctx context.Context, embedding []float64, limit int) ([]models.ReferenceClause, error) {
	r.lastLimit = limit
	if r.err != nil {
		return nil, r.err
	}
	return r.clauses, nil
}

func TestRetrieveClampsK(t *testing.T) {
	index := &recordingIndex{}
	retriever := NewPrecedentRetriever(&fixedEmbedder{vector: []float64{0.1}}, index)

	_, err := retriever.Retrieve(context.Background(), "clause", 50)
	require.NoError(t, err)
	assert.Equal(t, maxRetrievalK, index.lastLimit)

	_, err = retriever.Retrieve(context.Background(), "clause", 0)
	require.NoError(t, err)
	assert.Equal(t, minRetrievalK, index.lastLimit)
}

func TestRetrieveConvertsDistanceToSimilarity(t *testing.T) {
	index := &recordingIndex{
		clauses: []models.ReferenceClause{
			{Text: "near", Distance: 0.1},
			{Text: "far", Distance: 0.9},
			{Text: "overshoot", Distance: 1.3},
			{Text: "undershoot", Distance: -0.05},
		},
	}
	retriever := NewPrecedentRetriever(&fixedEmbedder{vector: []float64{0.1}}, index)

	precedents, err := retriever.Retrieve(context.Background(), "clause", 4)
	require.NoError(t, err)
	require.Len(t, precedents, 4)

	assert.InDelta(t, 0.9, precedents[0].Similarity, 1e-9)
	assert.InDelta(t, 0.1, precedents[1].Similarity, 1e-9)
	assert.Equal(t, 0.0, precedents[2].Similarity)
	assert.Equal(t, 1.0, precedents[3].Similarity)
}

func TestRetrieveEmptyCorpusIsNotAnError(t *testing.T) {
	retriever := NewPrecedentRetriever(&fixedEmbedder{vector: []float64{0.1}}, &recordingIndex{})

	precedents, err := retriever.Retrieve(context.Background(), "clause", 5)

	require.NoError(t, err)
	assert.Empty(t, precedents)
}

func TestRetrieveWrapsCollaboratorFailures(t *testing.T) {
	embedFail := NewPrecedentRetriever(&fixedEmbedder{err: errors.New("api down")}, &recordingIndex{})
	_, err := embedFail.Retrieve(context.Background(), "clause", 5)
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)

	indexFail := NewPrecedentRetriever(&fixedEmbedder{vector: []float64{0.1}}, &recordingIndex{err: errors.New("db down")})
	_, err = indexFail.Retrieve(context.Background(), "clause", 5)
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
}
