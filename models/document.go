package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentChunk is one span of an uploaded contract, flagged when it looks
// like a clause worth classifying.
type DocumentChunk struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	IsClause   bool      `json:"is_clause"`
	WordCount  int       `json:"word_count"`
}

// ContractDocument is an uploaded contract's metadata. The raw file lives in
// storage; the chunked text lives in document_chunks.
type ContractDocument struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	FileID       *uuid.UUID `json:"file_id,omitempty"`
	Filename     string     `json:"filename"`
	TotalChunks  int        `json:"total_chunks"`
	TotalClauses int        `json:"total_clauses"`
	WordCount    int        `json:"word_count"`
	CreatedAt    time.Time  `json:"created_at"`
}
