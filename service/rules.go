package service

import (
	"fmt"
	"regexp"
	"strings"

	"redline-backend/models"
)

// riskCriteria holds the keyword and pattern tables for one risk level.
type riskCriteria struct {
	keywords []string
	patterns []*regexp.Regexp
}

// RuleScorer is the deterministic keyword/pattern scorer. It is stateless
// after construction, never calls a collaborator, and never fails.
type RuleScorer struct {
	criteria map[models.RiskLevel]riskCriteria
}

// NewRuleScorer creates a rule scorer with the built-in risk criteria tables.
func NewRuleScorer() *RuleScorer {
	return &RuleScorer{criteria: defaultRiskCriteria()}
}

func defaultRiskCriteria() map[models.RiskLevel]riskCriteria {
	compile := func(exprs ...string) []*regexp.Regexp {
		patterns := make([]*regexp.Regexp, 0, len(exprs))
		for _, expr := range exprs {
			patterns = append(patterns, regexp.MustCompile(expr))
		}
		return patterns
	}

	return map[models.RiskLevel]riskCriteria{
		models.RiskRed: {
			keywords: []string{
				"unlimited liability", "personal guarantee", "joint and several liability",
				"liquidated damages", "penalty clause", "forfeiture", "punitive damages",
				"indemnification", "hold harmless", "defend and indemnify",
				"non-compete", "restraint of trade", "exclusivity agreement",
				"automatic renewal", "evergreen clause", "perpetual license",
				"unilateral termination", "termination for convenience",
				"assignment of all rights", "work for hire", "moral rights waiver",
			},
			patterns: compile(
				`shall be liable for all damages`,
				`unlimited.*liability`,
				`personal.*guarantee`,
				`indemnify.*against.*all.*claims`,
			),
		},
		models.RiskAmber: {
			keywords: []string{
				"termination", "breach", "default", "material breach",
				"force majeure", "act of god", "unforeseen circumstances",
				"intellectual property", "proprietary information", "trade secrets",
				"confidentiality", "non-disclosure", "proprietary rights",
				"governing law", "jurisdiction", "venue", "arbitration",
				"dispute resolution", "mediation", "litigation",
				"limitation of liability", "consequential damages", "indirect damages",
				"warranty disclaimer", "as is", "merchantability",
			},
			patterns: compile(
				`governing law.*shall be`,
				`disputes.*shall be.*resolved`,
				`limitation.*of.*liability`,
				`confidential.*information`,
			),
		},
		models.RiskGreen: {
			keywords: []string{
				"standard terms", "industry standard", "customary",
				"reasonable", "good faith", "best efforts",
				"mutual agreement", "consent", "approval",
				"notification", "notice", "communication",
				"cooperation", "assistance", "support",
			},
			patterns: compile(
				`reasonable.*efforts`,
				`good.*faith`,
				`mutual.*consent`,
				`industry.*standard`,
			),
		},
	}
}

// Score classifies a clause by keyword and pattern matching alone. Each
// keyword counts once regardless of repetition. The level with the highest
// score wins; ties break RED > AMBER > GREEN so legal risk is never
// under-reported. All-zero scores default to GREEN with confidence 0.5.
func (s *RuleScorer) Score(clauseText string) models.RuleVote {
	clauseLower := strings.ToLower(clauseText)

	scores := make(map[models.RiskLevel]int, len(models.RiskLevels))
	var matchedKeywords []string
	matchedByLevel := make(map[models.RiskLevel][]string)

	for _, level := range models.RiskLevels {
		scores[level] = 0
		criteria := s.criteria[level]
		for _, keyword := range criteria.keywords {
			if strings.Contains(clauseLower, keyword) {
				scores[level]++
				matchedByLevel[level] = append(matchedByLevel[level], keyword)
			}
		}
		for _, pattern := range criteria.patterns {
			if pattern.MatchString(clauseLower) {
				scores[level]++
			}
		}
	}

	maxScore := 0
	winner := models.RiskGreen
	// RiskLevels is ordered RED, AMBER, GREEN, so a strict > comparison
	// resolves ties in favor of the higher risk.
	for _, level := range models.RiskLevels {
		if scores[level] > maxScore {
			maxScore = scores[level]
			winner = level
		}
	}

	var confidence float64
	if maxScore == 0 {
		confidence = 0.5
	} else {
		confidence = 0.6 + 0.1*float64(maxScore)
		if confidence > 0.9 {
			confidence = 0.9
		}
	}

	matchedKeywords = matchedByLevel[winner]

	return models.RuleVote{
		RiskLevel:       winner,
		Confidence:      confidence,
		MatchedKeywords: matchedKeywords,
		Scores:          scores,
		Explanation:     ruleExplanation(winner, matchedKeywords),
	}
}

// ruleExplanation summarizes which indicators drove the rule-based vote.
func ruleExplanation(level models.RiskLevel, matched []string) string {
	if len(matched) == 0 {
		return "No specific risk indicators found in standard keyword analysis."
	}

	if len(matched) > 3 {
		matched = matched[:3]
	}
	keywordText := strings.Join(matched, ", ")

	switch level {
	case models.RiskRed:
		return fmt.Sprintf("High-risk terms detected: %s. Requires immediate legal review and negotiation.", keywordText)
	case models.RiskAmber:
		return fmt.Sprintf("Medium-risk terms identified: %s. Careful review and potential modification recommended.", keywordText)
	default:
		return fmt.Sprintf("Standard terms found: %s. Generally acceptable with minimal risk.", keywordText)
	}
}
