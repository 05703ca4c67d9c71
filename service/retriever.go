package service

import (
	"context"
	"errors"
	"fmt"

	"redline-backend/models"
)

const (
	minRetrievalK = 1
	maxRetrievalK = 10
)

// ErrRetrievalUnavailable means the vector index backing store could not be
// reached. Callers treat it as "no precedents", never as a reason to abort a
// classification.
var ErrRetrievalUnavailable = errors.New("precedent index unavailable")

// Retriever finds the reference clauses most similar to a query clause.
// Implementations must be safe for concurrent use.
type Retriever interface {
	Retrieve(ctx context.Context, queryText string, k int) ([]models.RetrievedPrecedent, error)
}

// VectorIndex is the nearest-neighbor lookup the retriever queries. The
// pgvector-backed ReferenceClauseRepository satisfies it.
type VectorIndex interface {
	Search(ctx context.Context, embedding []float64, limit int) ([]models.ReferenceClause, error)
}

// PrecedentRetriever embeds the query clause and searches the reference
// corpus, converting cosine distance into a [0,1] similarity.
type PrecedentRetriever struct {
	embedder Embedder
	index    VectorIndex
}

// NewPrecedentRetriever creates a precedent retriever
func NewPrecedentRetriever(embedder Embedder, index VectorIndex) *PrecedentRetriever {
	return &PrecedentRetriever{
		embedder: embedder,
		index:    index,
	}
}

// Retrieve returns up to k precedents sorted by similarity descending. An
// empty corpus yields an empty slice and nil error; an unreachable index
// yields ErrRetrievalUnavailable.
func (r *PrecedentRetriever) Retrieve(ctx context.Context, queryText string, k int) ([]models.RetrievedPrecedent, error) {
	if k < minRetrievalK {
		k = minRetrievalK
	}
	if k > maxRetrievalK {
		k = maxRetrievalK
	}

	embedding, err := r.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}

	clauses, err := r.index.Search(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}

	precedents := make([]models.RetrievedPrecedent, 0, len(clauses))
	for _, clause := range clauses {
		precedents = append(precedents, models.RetrievedPrecedent{
			Clause:     clause,
			Similarity: distanceToSimilarity(clause.Distance),
		})
	}

	return precedents, nil
}

// distanceToSimilarity converts cosine distance to a [0,1] similarity,
// clamped to absorb floating-point overshoot.
func distanceToSimilarity(distance float64) float64 {
	similarity := 1 - distance
	if similarity < 0 {
		return 0
	}
	if similarity > 1 {
		return 1
	}
	return similarity
}
