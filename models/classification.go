package models

// RuleVote is the deterministic keyword scorer's output for one clause.
type RuleVote struct {
	RiskLevel       RiskLevel         `json:"risk_level"`
	Confidence      float64           `json:"confidence"`
	MatchedKeywords []string          `json:"matched_keywords"`
	Scores          map[RiskLevel]int `json:"scores"`
	Explanation     string            `json:"explanation"`
}

// GenerativeVote is the risk opinion from the generative model or, when the
// model is absent or fails, from the precedent-consensus fallback. A completed
// classification always carries one.
type GenerativeVote struct {
	RiskLevel   RiskLevel `json:"risk_level"`
	Confidence  float64   `json:"confidence"`
	Explanation string    `json:"explanation"`
	// FromFallback marks votes produced by the precedent consensus rather
	// than a generative completion.
	FromFallback bool `json:"from_fallback"`
}

// ClauseClassification is the final per-clause result.
type ClauseClassification struct {
	ClauseText      string               `json:"clause_text"`
	RiskLevel       RiskLevel            `json:"risk_level"`
	Confidence      float64              `json:"confidence"`
	Explanation     string               `json:"explanation"`
	LegalReasoning  string               `json:"legal_reasoning"`
	Precedents      []RetrievedPrecedent `json:"precedents"`
	RuleVote        RuleVote             `json:"rule_based"`
	GenerativeVote  GenerativeVote       `json:"generative"`
	Recommendations []string             `json:"recommendations"`
}

// DocumentReport aggregates per-clause classifications into a document-level
// verdict. classified_clauses preserves input order.
type DocumentReport struct {
	ClassifiedClauses []ClauseClassification `json:"classified_clauses"`
	RiskSummary       map[RiskLevel]int      `json:"risk_summary"`
	RiskPercentage    map[RiskLevel]float64  `json:"risk_percentage"`
	OverallRisk       RiskLevel              `json:"overall_risk"`
	TotalClauses      int                    `json:"total_clauses"`
	Recommendations   []string               `json:"recommendations"`
}
