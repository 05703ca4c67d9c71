package service

import (
	"fmt"
	"strings"

	"redline-backend/models"
)

const (
	// maxRecommendations caps the per-clause recommendation list.
	maxRecommendations = 6

	// strongPrecedentSimilarity marks a precedent similar enough to cite
	// individually in the legal reasoning.
	strongPrecedentSimilarity = 0.8

	// rationaleExcerptLen limits how much of the generative rationale is
	// quoted inside the combined explanation.
	rationaleExcerptLen = 100
)

// Combiner merges the rule vote, the generative (or fallback) vote, and the
// raw precedent consensus into one final classification. It is a pure
// function over its inputs and holds only the trust weights.
type Combiner struct {
	ruleWeight       float64
	generativeWeight float64
}

// NewCombiner creates a combiner with the given trust split. Weights must
// sum to 1; the reference split trusts retrieval and generation evidence
// more than static keywords.
func NewCombiner(ruleWeight, generativeWeight float64) *Combiner {
	return &Combiner{
		ruleWeight:       ruleWeight,
		generativeWeight: generativeWeight,
	}
}

// NewDefaultCombiner creates a combiner with the reference weights.
func NewDefaultCombiner() *Combiner {
	return NewCombiner(models.DefaultRuleWeight, models.DefaultGenerativeWeight)
}

// Combine produces the final classification for a clause. The precedent
// consensus gets its own term in the blend so retrieved evidence influences
// the outcome even when the generative path ran.
func (c *Combiner) Combine(
	clauseText string,
	rule models.RuleVote,
	generative models.GenerativeVote,
	precedents []models.RetrievedPrecedent,
) models.ClauseClassification {
	consensusPriority := PrecedentConsensusPriority(precedents)

	weightedPriority := rule.RiskLevel.Priority()*c.ruleWeight +
		generative.RiskLevel.Priority()*c.generativeWeight*models.GenerativeVoteShare +
		consensusPriority*c.generativeWeight*models.PrecedentConsensusShare

	finalLevel := models.RiskLevelFromPriority(weightedPriority)

	confidence := rule.Confidence*c.ruleWeight + generative.Confidence*c.generativeWeight
	if labelAgreement(precedents, finalLevel) > 0.5 {
		confidence += 0.1
	}
	if confidence > models.MaxCombinedConfidence {
		confidence = models.MaxCombinedConfidence
	}

	return models.ClauseClassification{
		ClauseText:      clauseText,
		RiskLevel:       finalLevel,
		Confidence:      confidence,
		Explanation:     c.buildExplanation(finalLevel, rule, generative, precedents),
		LegalReasoning:  c.buildLegalReasoning(clauseText, finalLevel, precedents),
		RuleVote:        rule,
		GenerativeVote:  generative,
		Precedents:      topPrecedents(precedents),
		Recommendations: c.buildRecommendations(clauseText, finalLevel, precedents),
	}
}

// riskBanner returns the fixed lead sentence for a final risk level.
func riskBanner(level models.RiskLevel) string {
	switch level {
	case models.RiskRed:
		return "HIGH RISK: This clause poses significant legal or financial risks."
	case models.RiskAmber:
		return "MEDIUM RISK: This clause requires careful consideration and review."
	default:
		return "LOW RISK: This clause appears to be standard and acceptable."
	}
}

// buildExplanation concatenates the risk banner, the rule scorer's keyword
// summary, a precedent summary, and a trimmed excerpt of the generative or
// fallback rationale.
func (c *Combiner) buildExplanation(
	finalLevel models.RiskLevel,
	rule models.RuleVote,
	generative models.GenerativeVote,
	precedents []models.RetrievedPrecedent,
) string {
	var builder strings.Builder

	builder.WriteString(riskBanner(finalLevel))
	builder.WriteString(" ")
	builder.WriteString(rule.Explanation)

	if len(precedents) > 0 {
		builder.WriteString(fmt.Sprintf(" Compared against %d similar precedent clauses (avg similarity %.2f).",
			len(precedents), averageSimilarity(precedents)))
	}

	rationale := strings.TrimSpace(generative.Explanation)
	if rationale != "" && rationale != rule.Explanation {
		rationale = excerptRunes(rationale, rationaleExcerptLen)
		builder.WriteString(" Additional analysis: ")
		builder.WriteString(rationale)
	}

	return builder.String()
}

// buildLegalReasoning produces the precedent-grounded narrative: consensus
// strength, dominant contract domain, the strongest single precedent when it
// is close enough to cite, and the specific concern phrases found in the
// clause.
func (c *Combiner) buildLegalReasoning(
	clauseText string,
	finalLevel models.RiskLevel,
	precedents []models.RetrievedPrecedent,
) string {
	var parts []string

	parts = append(parts, riskBanner(finalLevel))

	if len(precedents) > 0 {
		majority := majorityAgreement(precedents)
		parts = append(parts, fmt.Sprintf("Precedent consensus: %.0f%% of %d retrieved clauses share one risk label; dominant contract domain is %s.",
			majority*100, len(precedents), dominantDomain(precedents)))

		if top := strongestPrecedent(precedents); top != nil && top.Similarity > strongPrecedentSimilarity {
			excerpt := excerptRunes(top.Clause.Text, precedentExcerptLen)
			parts = append(parts, fmt.Sprintf("Closest precedent (%s risk, similarity %.2f): %q.",
				top.Clause.RiskLevel, top.Similarity, excerpt))
		}
	} else {
		parts = append(parts, "No comparable precedents were found in the reference corpus.")
	}

	if concerns := detectConcerns(clauseText); len(concerns) > 0 {
		parts = append(parts, "Specific concerns: "+strings.Join(concerns, "; ")+".")
	}

	return strings.Join(parts, " ")
}

// concernScans maps a clause substring to the concern it signals. Checked
// in order so the narrative is stable for a given clause.
var concernScans = []struct {
	markers []string
	concern string
}{
	{[]string{"unlimited liability", "all damages"}, "unlimited liability exposure"},
	{[]string{"indemnif", "hold harmless"}, "broad indemnification obligations"},
	{[]string{"non-compete", "exclusivity"}, "restrictive covenants limiting future business"},
	{[]string{"terminate at any time", "unilateral termination", "sole discretion"}, "one-sided termination rights"},
}

func detectConcerns(clauseText string) []string {
	lower := strings.ToLower(clauseText)
	var concerns []string
	for _, scan := range concernScans {
		for _, marker := range scan.markers {
			if strings.Contains(lower, marker) {
				concerns = append(concerns, scan.concern)
				break
			}
		}
	}
	return concerns
}

// buildRecommendations assembles the per-clause action list: the fixed list
// for the final risk level, then corpus-derived notes, then clause-topic
// notes, capped at maxRecommendations in that priority order.
func (c *Combiner) buildRecommendations(
	clauseText string,
	finalLevel models.RiskLevel,
	precedents []models.RetrievedPrecedent,
) []string {
	recommendations := append([]string(nil), baseRecommendations(finalLevel)...)

	if domain := dominantDomain(precedents); domain != "" && domain != "general" {
		recommendations = append(recommendations,
			fmt.Sprintf("Benchmark against industry standards for %s contracts", domain))
	}

	if finalLevel != models.RiskRed && hasHighRiskPrecedent(precedents) {
		recommendations = append(recommendations,
			"Similar clauses have been flagged high-risk in comparable contracts; verify the differences apply here")
	}

	recommendations = append(recommendations, topicRecommendations(clauseText)...)

	if len(recommendations) > maxRecommendations {
		recommendations = recommendations[:maxRecommendations]
	}
	return recommendations
}

func baseRecommendations(level models.RiskLevel) []string {
	switch level {
	case models.RiskRed:
		return []string{
			"Immediate legal review required",
			"Consider negotiating alternative terms",
			"Assess potential financial exposure",
		}
	case models.RiskAmber:
		return []string{
			"Review clause carefully",
			"Consider clarifying language",
			"Consult legal counsel if needed",
		}
	default:
		return []string{
			"Standard clause - generally acceptable",
			"Quick review for consistency",
		}
	}
}

// topicRecommendations adds clause-topic-specific guidance detected by
// substring scan.
func topicRecommendations(clauseText string) []string {
	lower := strings.ToLower(clauseText)
	var notes []string
	if strings.Contains(lower, "liabilit") {
		notes = append(notes, "Seek mutual liability caps and confirm insurance coverage")
	}
	if strings.Contains(lower, "terminat") {
		notes = append(notes, "Negotiate balanced notice periods for termination")
	}
	if strings.Contains(lower, "confidential") {
		notes = append(notes, "Check the scope and duration of confidentiality obligations")
	}
	return notes
}

// dominantDomain returns the most common contract domain among the
// precedents, or "" when there are none. Ties resolve to the first domain
// reaching the maximum in retrieval order, which favors higher similarity.
func dominantDomain(precedents []models.RetrievedPrecedent) string {
	if len(precedents) == 0 {
		return ""
	}
	counts := make(map[string]int)
	var dominant string
	var best int
	for _, p := range precedents {
		domain := p.Clause.ContractDomain
		counts[domain]++
		if counts[domain] > best {
			best = counts[domain]
			dominant = domain
		}
	}
	return dominant
}

func hasHighRiskPrecedent(precedents []models.RetrievedPrecedent) bool {
	for _, p := range precedents {
		if p.Clause.RiskLevel == models.RiskRed {
			return true
		}
	}
	return false
}

// strongestPrecedent returns the highest-similarity precedent, or nil.
func strongestPrecedent(precedents []models.RetrievedPrecedent) *models.RetrievedPrecedent {
	var top *models.RetrievedPrecedent
	for i := range precedents {
		if top == nil || precedents[i].Similarity > top.Similarity {
			top = &precedents[i]
		}
	}
	return top
}

// topPrecedents trims the precedent list to what the API surfaces on a
// classification.
func topPrecedents(precedents []models.RetrievedPrecedent) []models.RetrievedPrecedent {
	if len(precedents) > maxPromptPrecedents {
		return precedents[:maxPromptPrecedents]
	}
	return precedents
}
