package repository

import (
	"context"
	"fmt"

	"redline-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentRepository handles database operations for uploaded contract
// documents and their chunks.
type DocumentRepository struct {
	db *pgxpool.Pool
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create stores a contract document and its chunks in one transaction.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.ContractDocument, chunks []models.DocumentChunk) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO contract_documents (
			user_id, file_id, filename, total_chunks, total_clauses, word_count
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err = tx.QueryRow(
		ctx, query,
		doc.UserID,
		doc.FileID,
		doc.Filename,
		doc.TotalChunks,
		doc.TotalClauses,
		doc.WordCount,
	).Scan(&doc.ID, &doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert contract document: %w", err)
	}

	chunkQuery := `
		INSERT INTO document_chunks (
			id, document_id, chunk_index, chunk_text, is_clause, word_count
		) VALUES ($1, $2, $3, $4, $5, $6)`

	for i := range chunks {
		chunks[i].ID = uuid.New()
		chunks[i].DocumentID = doc.ID
		_, err = tx.Exec(ctx, chunkQuery,
			chunks[i].ID,
			chunks[i].DocumentID,
			chunks[i].ChunkIndex,
			chunks[i].Text,
			chunks[i].IsClause,
			chunks[i].WordCount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a contract document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ContractDocument, error) {
	doc := &models.ContractDocument{}
	query := `
		SELECT id, user_id, file_id, filename, total_chunks, total_clauses, word_count, created_at
		FROM contract_documents
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.UserID,
		&doc.FileID,
		&doc.Filename,
		&doc.TotalChunks,
		&doc.TotalClauses,
		&doc.WordCount,
		&doc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// ListClauseChunks retrieves the chunks flagged as clauses for a document,
// in chunk order.
func (r *DocumentRepository) ListClauseChunks(ctx context.Context, documentID uuid.UUID) ([]models.DocumentChunk, error) {
	query := `
		SELECT id, document_id, chunk_index, chunk_text, is_clause, word_count
		FROM document_chunks
		WHERE document_id = $1 AND is_clause = true
		ORDER BY chunk_index`

	rows, err := r.db.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query document chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.DocumentChunk
	for rows.Next() {
		var chunk models.DocumentChunk
		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.ChunkIndex,
			&chunk.Text,
			&chunk.IsClause,
			&chunk.WordCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	return chunks, rows.Err()
}
