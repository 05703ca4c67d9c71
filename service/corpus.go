package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"redline-backend/models"
)

var ErrCorpusIngestionFailed = errors.New("reference corpus ingestion failed")

// CorpusStore is the persistence surface corpus ingestion needs.
type CorpusStore interface {
	Count(ctx context.Context) (int, error)
	InsertBatch(ctx context.Context, clauses []models.ReferenceClause) error
}

// BatchEmbedder embeds many documents at once, used only during ingestion.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// CorpusService populates the reference corpus at startup. Ingestion is
// idempotent: a corpus that already has content is left untouched, so
// restarts never duplicate rows.
type CorpusService struct {
	store    CorpusStore
	embedder BatchEmbedder
	loader   *DatasetLoader
}

// NewCorpusService creates a corpus service
func NewCorpusService(store CorpusStore, embedder BatchEmbedder, loader *DatasetLoader) *CorpusService {
	return &CorpusService{
		store:    store,
		embedder: embedder,
		loader:   loader,
	}
}

// EnsureCorpus populates the reference corpus if it is empty. Must complete
// before any retrieval is served; the populate-if-empty check keyed on
// corpus size makes it safe to call on every process start.
func (s *CorpusService) EnsureCorpus(ctx context.Context) error {
	count, err := s.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorpusIngestionFailed, err)
	}
	if count > 0 {
		log.Printf("Reference corpus already populated with %d clauses, skipping ingestion", count)
		return nil
	}

	clauses := s.loader.Load()
	if len(clauses) == 0 {
		return fmt.Errorf("%w: dataset produced no clauses", ErrCorpusIngestionFailed)
	}

	log.Printf("Embedding %d reference clauses...", len(clauses))

	texts := make([]string, len(clauses))
	for i, clause := range clauses {
		texts[i] = clause.Text
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorpusIngestionFailed, err)
	}
	if len(embeddings) != len(clauses) {
		return fmt.Errorf("%w: got %d embeddings for %d clauses", ErrCorpusIngestionFailed, len(embeddings), len(clauses))
	}

	for i := range clauses {
		clauses[i].ID = uuid.New()
		clauses[i].Embedding = embeddings[i]
	}

	if err := s.store.InsertBatch(ctx, clauses); err != nil {
		return fmt.Errorf("%w: %v", ErrCorpusIngestionFailed, err)
	}

	log.Printf("✓ Ingested %d reference clauses into the corpus", len(clauses))
	return nil
}
