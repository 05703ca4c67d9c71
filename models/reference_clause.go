package models

import (
	"time"

	"github.com/google/uuid"
)

// ReferenceClause is a labeled clause from the reference corpus. Records are
// immutable once ingested and serve as retrieval targets for precedent
// lookups.
type ReferenceClause struct {
	ID                uuid.UUID `json:"id"`
	Text              string    `json:"text"`
	RiskLevel         RiskLevel `json:"risk_level"`
	ClauseType        string    `json:"clause_type"`
	ContractDomain    string    `json:"contract_domain"`
	ContractTitle     string    `json:"contract_title"`
	Source            string    `json:"source"`
	PrecedentStrength float64   `json:"precedent_strength"`
	Embedding         []float64 `json:"-"`
	CreatedAt         time.Time `json:"created_at"`

	// Distance is the raw cosine distance from the query vector, populated
	// only on retrieval results.
	Distance float64 `json:"distance,omitempty"`
}

// RetrievedPrecedent pairs a reference clause with its query-specific
// similarity. Created per retrieval call and discarded after the enclosing
// classification completes.
type RetrievedPrecedent struct {
	Clause     ReferenceClause `json:"clause"`
	Similarity float64         `json:"similarity"`
}
