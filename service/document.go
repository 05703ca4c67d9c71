package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"redline-backend/models"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrEmptyDocument    = errors.New("document contains no usable text")
)

// DocumentStore persists contract documents and their chunks.
type DocumentStore interface {
	Create(ctx context.Context, doc *models.ContractDocument, chunks []models.DocumentChunk) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ContractDocument, error)
	ListClauseChunks(ctx context.Context, documentID uuid.UUID) ([]models.DocumentChunk, error)
}

// DocumentService ingests uploaded contracts and runs document-level risk
// analysis over their clause chunks.
type DocumentService struct {
	docRepo    DocumentStore
	chunker    *DocumentChunker
	classifier *ClassifierService
}

// NewDocumentService creates a new document service
func NewDocumentService(docRepo DocumentStore, chunker *DocumentChunker, classifier *ClassifierService) *DocumentService {
	return &DocumentService{
		docRepo:    docRepo,
		chunker:    chunker,
		classifier: classifier,
	}
}

// IngestDocument chunks the contract text, flags clause chunks, and persists
// the document with its chunks. fileID links back to the stored upload when
// one exists.
func (s *DocumentService) IngestDocument(
	ctx context.Context,
	userID uuid.UUID,
	fileID *uuid.UUID,
	filename string,
	text string,
) (*models.ContractDocument, error) {
	processed := s.chunker.Process(text)
	if processed.TotalChunks == 0 {
		return nil, ErrEmptyDocument
	}

	doc := &models.ContractDocument{
		UserID:       userID,
		FileID:       fileID,
		Filename:     filename,
		TotalChunks:  processed.TotalChunks,
		TotalClauses: processed.TotalClauses,
		WordCount:    processed.WordCount,
	}

	if err := s.docRepo.Create(ctx, doc, processed.Chunks); err != nil {
		return nil, fmt.Errorf("failed to persist document: %w", err)
	}

	return doc, nil
}

// GetDocument loads a document's metadata.
func (s *DocumentService) GetDocument(ctx context.Context, documentID uuid.UUID) (*models.ContractDocument, error) {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentNotFound, err)
	}
	return doc, nil
}

// AnalyzeDocument classifies every clause chunk of a stored document and
// returns the aggregated report. Non-clause chunks are skipped; a document
// with no clause chunks yields an empty GREEN report rather than an error.
func (s *DocumentService) AnalyzeDocument(ctx context.Context, documentID uuid.UUID, contractContext string) (*models.DocumentReport, error) {
	if _, err := s.docRepo.GetByID(ctx, documentID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentNotFound, err)
	}

	chunks, err := s.docRepo.ListClauseChunks(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentClassificationFailed, err)
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	return s.classifier.ClassifyDocument(ctx, texts, contractContext)
}
