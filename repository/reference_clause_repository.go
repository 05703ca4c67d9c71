package repository

import (
	"context"
	"fmt"
	"strings"

	"redline-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EmbeddingDimensions is the fixed dimensionality of corpus and query
// vectors. Corpus ingestion and query-time embedding must agree on it for
// cosine distance to be meaningful.
const EmbeddingDimensions = 768

// ReferenceClauseRepository handles database operations for the labeled
// reference corpus. Reads are safe to run concurrently; writes only happen
// during one-time ingestion.
type ReferenceClauseRepository struct {
	db *pgxpool.Pool
}

// NewReferenceClauseRepository creates a new reference clause repository
func NewReferenceClauseRepository(db *pgxpool.Pool) *ReferenceClauseRepository {
	return &ReferenceClauseRepository{db: db}
}

// formatVector formats an embedding vector as a string for pgx
func formatVector(embedding []float64) string {
	if len(embedding) == 0 {
		return "[]"
	}
	var parts []string
	for _, v := range embedding {
		parts = append(parts, fmt.Sprintf("%.6f", v))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Count returns the number of reference clauses in the corpus. Ingestion uses
// it as the populate-if-empty guard.
func (r *ReferenceClauseRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM reference_clauses").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reference clauses: %w", err)
	}
	return count, nil
}

// Search returns the limit nearest reference clauses by cosine distance to
// the query embedding, nearest first. An empty corpus yields an empty slice,
// not an error.
func (r *ReferenceClauseRepository) Search(
	ctx context.Context,
	embedding []float64,
	limit int,
) ([]models.ReferenceClause, error) {
	if len(embedding) != EmbeddingDimensions {
		return nil, fmt.Errorf("embedding must be %d dimensions, got %d", EmbeddingDimensions, len(embedding))
	}

	vectorStr := formatVector(embedding)

	query := `
		SELECT
			id,
			clause_text,
			risk_level,
			clause_type,
			contract_domain,
			contract_title,
			source,
			precedent_strength,
			created_at,
			embedding <=> $1::vector AS distance
		FROM reference_clauses
		ORDER BY
			embedding <=> $1::vector
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, vectorStr, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reference clauses: %w", err)
	}
	defer rows.Close()

	var clauses []models.ReferenceClause
	for rows.Next() {
		var clause models.ReferenceClause
		err := rows.Scan(
			&clause.ID,
			&clause.Text,
			&clause.RiskLevel,
			&clause.ClauseType,
			&clause.ContractDomain,
			&clause.ContractTitle,
			&clause.Source,
			&clause.PrecedentStrength,
			&clause.CreatedAt,
			&clause.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reference clause: %w", err)
		}
		clauses = append(clauses, clause)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reference clauses: %w", err)
	}

	return clauses, nil
}

// InsertBatch stores a batch of embedded reference clauses in a single
// transaction.
func (r *ReferenceClauseRepository) InsertBatch(ctx context.Context, clauses []models.ReferenceClause) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO reference_clauses (
			id, clause_text, risk_level, clause_type, contract_domain,
			contract_title, source, precedent_strength, embedding
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::vector)`

	for i, clause := range clauses {
		if len(clause.Embedding) != EmbeddingDimensions {
			return fmt.Errorf("clause %d has %d-dimensional embedding, want %d", i, len(clause.Embedding), EmbeddingDimensions)
		}
		_, err = tx.Exec(ctx, query,
			clause.ID,
			clause.Text,
			clause.RiskLevel,
			clause.ClauseType,
			clause.ContractDomain,
			clause.ContractTitle,
			clause.Source,
			clause.PrecedentStrength,
			formatVector(clause.Embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to insert reference clause %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
