package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"redline-backend/models"
)

const (
	// maxPromptPrecedents bounds how many precedents are quoted in the
	// prompt and surfaced on the final classification.
	maxPromptPrecedents = 2

	// precedentExcerptLen limits quoted precedent text in prompts.
	precedentExcerptLen = 150

	// maxVoteExplanation caps the free-text rationale carried on a vote.
	maxVoteExplanation = 200
)

// GenerativeAnalyzer asks the generative model for a risk opinion on a
// clause, backed by retrieved precedents. When the model is absent or a call
// fails it degrades to a precedent-consensus vote; a vote is always produced.
type GenerativeAnalyzer struct {
	completer Completer
}

// NewGenerativeAnalyzer creates an analyzer. completer may be nil, in which
// case every clause takes the fallback path.
func NewGenerativeAnalyzer(completer Completer) *GenerativeAnalyzer {
	return &GenerativeAnalyzer{completer: completer}
}

// Analyze produces a GenerativeVote for the clause. The two stages are
// explicit: try the generative path, otherwise compute the fallback.
func (a *GenerativeAnalyzer) Analyze(
	ctx context.Context,
	clauseText string,
	contractContext string,
	precedents []models.RetrievedPrecedent,
) models.GenerativeVote {
	if vote, ok := a.tryGenerativeVote(ctx, clauseText, contractContext, precedents); ok {
		return vote
	}
	return FallbackVote(precedents)
}

// tryGenerativeVote builds a retrieval-augmented prompt and parses the
// model's completion. Returns false when no model is configured or the call
// fails.
func (a *GenerativeAnalyzer) tryGenerativeVote(
	ctx context.Context,
	clauseText string,
	contractContext string,
	precedents []models.RetrievedPrecedent,
) (models.GenerativeVote, bool) {
	if a.completer == nil {
		return models.GenerativeVote{}, false
	}

	prompt := buildRiskAnalysisPrompt(clauseText, contractContext, precedents)

	completion, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		log.Printf("Warning: generative risk analysis failed, using precedent consensus: %v", err)
		return models.GenerativeVote{}, false
	}

	level := parseRiskLevel(completion)
	confidence := parseConfidence(completion, precedents)

	return models.GenerativeVote{
		RiskLevel:   level,
		Confidence:  confidence,
		Explanation: trimExplanation(completion),
	}, true
}

// buildRiskAnalysisPrompt assembles the clause, the top precedents, and the
// caller-supplied context into a structured prompt.
func buildRiskAnalysisPrompt(clauseText, contractContext string, precedents []models.RetrievedPrecedent) string {
	var builder strings.Builder

	builder.WriteString("You are an expert contract attorney assessing legal risk.\n\n")
	builder.WriteString("CLAUSE UNDER REVIEW:\n")
	builder.WriteString(fmt.Sprintf("%q\n\n", clauseText))

	if contractContext != "" {
		builder.WriteString(fmt.Sprintf("CONTRACT CONTEXT: %s\n\n", contractContext))
	}

	if len(precedents) > 0 {
		builder.WriteString("SIMILAR PRECEDENT CLAUSES:\n")
		for i, precedent := range precedents {
			if i >= maxPromptPrecedents {
				break
			}
			excerpt := excerptRunes(precedent.Clause.Text, precedentExcerptLen)
			builder.WriteString(fmt.Sprintf("%d. [%s risk, %s domain] %s\n",
				i+1, precedent.Clause.RiskLevel, precedent.Clause.ContractDomain, excerpt))
		}
		builder.WriteString("\n")
	}

	builder.WriteString("TASK:\n")
	builder.WriteString("Classify the risk level of the clause under review as RED (high risk), AMBER (medium risk), or GREEN (low risk).\n")
	builder.WriteString("State your confidence as high or low if notable.\n")
	builder.WriteString("Provide a brief explanation in one or two sentences.\n")

	return builder.String()
}

// parseRiskLevel scans the completion for a risk keyword. Scan order is
// RED, AMBER (or "yellow"), GREEN; an unrecognizable completion defaults to
// AMBER so uncertainty escalates to a human rather than passing as low risk.
func parseRiskLevel(completion string) models.RiskLevel {
	lower := strings.ToLower(completion)

	switch {
	case strings.Contains(lower, "red"):
		return models.RiskRed
	case strings.Contains(lower, "amber"), strings.Contains(lower, "yellow"):
		return models.RiskAmber
	case strings.Contains(lower, "green"):
		return models.RiskGreen
	default:
		return models.RiskAmber
	}
}

// parseConfidence derives a confidence score from hedge words in the
// completion, boosted by how similar the retrieved precedents are.
func parseConfidence(completion string, precedents []models.RetrievedPrecedent) float64 {
	lower := strings.ToLower(completion)

	confidence := 0.8
	if strings.Contains(lower, "high confidence") {
		confidence = 0.9
	} else if strings.Contains(lower, "low confidence") {
		confidence = 0.6
	}

	confidence += 0.1 * averageSimilarity(precedents)
	if confidence > models.MaxCombinedConfidence {
		confidence = models.MaxCombinedConfidence
	}
	return confidence
}

func averageSimilarity(precedents []models.RetrievedPrecedent) float64 {
	if len(precedents) == 0 {
		return 0
	}
	var total float64
	for _, p := range precedents {
		total += p.Similarity
	}
	return total / float64(len(precedents))
}

func trimExplanation(text string) string {
	return truncateRunes(strings.TrimSpace(text), maxVoteExplanation)
}

// truncateRunes caps text at limit characters without splitting a multibyte
// character.
func truncateRunes(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// excerptRunes truncates like truncateRunes but marks the cut with an
// ellipsis.
func excerptRunes(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

// FallbackVote computes a similarity-and-strength weighted consensus over the
// retrieved precedents, with no generative call. It is a first-class path,
// not an error case: deployments without a generative model run on it
// exclusively.
func FallbackVote(precedents []models.RetrievedPrecedent) models.GenerativeVote {
	level := PrecedentConsensusLevel(precedents)

	agreement := majorityAgreement(precedents)
	confidence := 0.6 + 0.3*agreement

	explanation := "No precedents retrieved; defaulting to medium risk pending manual review."
	if len(precedents) > 0 {
		explanation = fmt.Sprintf(
			"Precedent consensus across %d similar clauses indicates %s risk (%.0f%% agreement, avg similarity %.2f).",
			len(precedents), level, agreement*100, averageSimilarity(precedents))
	}

	return models.GenerativeVote{
		RiskLevel:    level,
		Confidence:   confidence,
		Explanation:  trimExplanation(explanation),
		FromFallback: true,
	}
}

// PrecedentConsensusPriority computes the similarity-and-strength weighted
// average priority of the precedents. Zero total weight yields the AMBER
// boundary, so absent evidence reads as "uncertain" rather than "safe".
func PrecedentConsensusPriority(precedents []models.RetrievedPrecedent) float64 {
	var weightedSum, totalWeight float64
	for _, p := range precedents {
		weight := p.Similarity * p.Clause.PrecedentStrength
		weightedSum += p.Clause.RiskLevel.Priority() * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return models.NeutralPriority
	}
	return weightedSum / totalWeight
}

// PrecedentConsensusLevel maps the weighted consensus priority to a level.
func PrecedentConsensusLevel(precedents []models.RetrievedPrecedent) models.RiskLevel {
	return models.RiskLevelFromPriority(PrecedentConsensusPriority(precedents))
}

// majorityAgreement returns the fraction of precedents carrying the most
// common label. It measures how much the precedents agree with each other,
// independent of any computed label.
func majorityAgreement(precedents []models.RetrievedPrecedent) float64 {
	if len(precedents) == 0 {
		return 0
	}
	counts := make(map[models.RiskLevel]int)
	for _, p := range precedents {
		counts[p.Clause.RiskLevel]++
	}
	var majority int
	for _, count := range counts {
		if count > majority {
			majority = count
		}
	}
	return float64(majority) / float64(len(precedents))
}

// labelAgreement returns the fraction of precedents whose label matches
// level.
func labelAgreement(precedents []models.RetrievedPrecedent, level models.RiskLevel) float64 {
	if len(precedents) == 0 {
		return 0
	}
	var matching int
	for _, p := range precedents {
		if p.Clause.RiskLevel == level {
			matching++
		}
	}
	return float64(matching) / float64(len(precedents))
}
