package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"golang.org/x/sync/errgroup"

	"redline-backend/models"
)

var ErrDocumentClassificationFailed = errors.New("document classification failed")

const (
	// defaultRetrievalK is how many precedents are fetched per clause.
	defaultRetrievalK = 5

	// defaultWorkers bounds concurrent clause classifications within one
	// document. Each classification makes at least one retrieval call and
	// possibly one generative call, so the pool caps in-flight I/O.
	defaultWorkers = 4

	// failSafeConfidence is the confidence assigned when a clause's
	// pipeline fails and the fail-safe AMBER default is returned.
	failSafeConfidence = 0.3
)

// ClassifierService runs the full per-clause pipeline: retrieve precedents,
// score keywords, obtain a generative or consensus vote, and blend the three
// into a final classification. It also aggregates clause results into a
// document-level report.
type ClassifierService struct {
	retriever Retriever
	scorer    *RuleScorer
	analyzer  *GenerativeAnalyzer
	combiner  *Combiner
	workers   int
}

// ClassifierServiceOption is a functional option for ClassifierService
type ClassifierServiceOption func(*ClassifierService)

// ClassifierWithRetriever sets the precedent retriever
func ClassifierWithRetriever(retriever Retriever) ClassifierServiceOption {
	return func(s *ClassifierService) {
		s.retriever = retriever
	}
}

// ClassifierWithRuleScorer sets the keyword rule scorer
func ClassifierWithRuleScorer(scorer *RuleScorer) ClassifierServiceOption {
	return func(s *ClassifierService) {
		s.scorer = scorer
	}
}

// ClassifierWithAnalyzer sets the generative analyzer
func ClassifierWithAnalyzer(analyzer *GenerativeAnalyzer) ClassifierServiceOption {
	return func(s *ClassifierService) {
		s.analyzer = analyzer
	}
}

// ClassifierWithWeights overrides the rule/generative trust split
func ClassifierWithWeights(ruleWeight, generativeWeight float64) ClassifierServiceOption {
	return func(s *ClassifierService) {
		s.combiner = NewCombiner(ruleWeight, generativeWeight)
	}
}

// ClassifierWithWorkers bounds the per-document worker pool
func ClassifierWithWorkers(workers int) ClassifierServiceOption {
	return func(s *ClassifierService) {
		if workers > 0 {
			s.workers = workers
		}
	}
}

// NewClassifierService creates a classifier service. Missing collaborators
// degrade rather than fail: no retriever means empty precedent lists, no
// analyzer means the precedent-consensus fallback handles every clause.
func NewClassifierService(opts ...ClassifierServiceOption) *ClassifierService {
	s := &ClassifierService{
		scorer:   NewRuleScorer(),
		analyzer: NewGenerativeAnalyzer(nil),
		combiner: NewDefaultCombiner(),
		workers:  defaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClassifyClause classifies a single clause. It never returns an error: any
// failure inside the pipeline yields the fail-safe AMBER classification, so
// a failed analysis reads as "needs a human", never as "safe".
func (s *ClassifierService) ClassifyClause(ctx context.Context, clauseText, contractContext string) (classification models.ClauseClassification) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Error: clause classification panicked: %v", r)
			classification = s.failSafeClassification(clauseText)
		}
	}()

	precedents := s.retrievePrecedents(ctx, clauseText)

	ruleVote := s.scorer.Score(clauseText)
	generativeVote := s.analyzer.Analyze(ctx, clauseText, contractContext, precedents)

	return s.combiner.Combine(clauseText, ruleVote, generativeVote, precedents)
}

// retrievePrecedents fetches similar reference clauses, treating an
// unreachable index as "no precedents" so classification still proceeds.
func (s *ClassifierService) retrievePrecedents(ctx context.Context, clauseText string) []models.RetrievedPrecedent {
	if s.retriever == nil {
		return nil
	}

	precedents, err := s.retriever.Retrieve(ctx, clauseText, defaultRetrievalK)
	if err != nil {
		log.Printf("Warning: precedent retrieval failed, classifying without precedents: %v", err)
		return nil
	}
	return precedents
}

// failSafeClassification is the defaulted result for a clause whose pipeline
// failed. Both votes mirror the AMBER default so the result shape stays
// complete.
func (s *ClassifierService) failSafeClassification(clauseText string) models.ClauseClassification {
	return models.ClauseClassification{
		ClauseText:  clauseText,
		RiskLevel:   models.RiskAmber,
		Confidence:  failSafeConfidence,
		Explanation: "Unable to complete analysis. Manual review recommended.",
		RuleVote: models.RuleVote{
			RiskLevel:  models.RiskAmber,
			Confidence: failSafeConfidence,
		},
		GenerativeVote: models.GenerativeVote{
			RiskLevel:    models.RiskAmber,
			Confidence:   failSafeConfidence,
			FromFallback: true,
		},
		Recommendations: []string{"Manual legal review required due to analysis error"},
	}
}

// ClassifyDocument classifies every clause concurrently and aggregates the
// results into one report. Output order matches input order regardless of
// completion order. The error path covers only aggregation-level failures;
// individual clause failures are absorbed by ClassifyClause's fail-safe.
func (s *ClassifierService) ClassifyDocument(ctx context.Context, clauseTexts []string, contractContext string) (*models.DocumentReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentClassificationFailed, err)
	}

	results := make([]models.ClauseClassification, len(clauseTexts))

	var group errgroup.Group
	group.SetLimit(s.workers)
	for i, text := range clauseTexts {
		group.Go(func() error {
			results[i] = s.ClassifyClause(ctx, text, contractContext)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentClassificationFailed, err)
	}

	riskSummary := map[models.RiskLevel]int{
		models.RiskRed:   0,
		models.RiskAmber: 0,
		models.RiskGreen: 0,
	}
	for _, result := range results {
		riskSummary[result.RiskLevel]++
	}

	total := len(results)
	riskPercentage := make(map[models.RiskLevel]float64, len(riskSummary))
	for level, count := range riskSummary {
		if total == 0 {
			riskPercentage[level] = 0
			continue
		}
		riskPercentage[level] = math.Round(float64(count)/float64(total)*1000) / 10
	}

	overall := overallRisk(riskSummary, total)

	return &models.DocumentReport{
		ClassifiedClauses: results,
		RiskSummary:       riskSummary,
		RiskPercentage:    riskPercentage,
		OverallRisk:       overall,
		TotalClauses:      total,
		Recommendations:   documentRecommendations(overall, riskSummary),
	}, nil
}

// overallRisk derives the document verdict. Any nontrivial high-risk
// presence, or a majority-medium document, escalates the verdict. An empty
// document is GREEN.
func overallRisk(riskSummary map[models.RiskLevel]int, total int) models.RiskLevel {
	if total == 0 {
		return models.RiskGreen
	}

	redPct := float64(riskSummary[models.RiskRed]) / float64(total) * 100
	amberPct := float64(riskSummary[models.RiskAmber]) / float64(total) * 100

	switch {
	case redPct > 20:
		return models.RiskRed
	case redPct > 0 || amberPct > 50:
		return models.RiskAmber
	default:
		return models.RiskGreen
	}
}

// documentRecommendations builds the document-level action list: per-level
// attention counts first, then overall-risk guidance.
func documentRecommendations(overall models.RiskLevel, riskSummary map[models.RiskLevel]int) []string {
	var recommendations []string

	if red := riskSummary[models.RiskRed]; red > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("%d high-risk clauses require immediate attention", red))
	}
	if amber := riskSummary[models.RiskAmber]; amber > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("%d medium-risk clauses need review", amber))
	}

	switch overall {
	case models.RiskRed:
		recommendations = append(recommendations,
			"Recommend comprehensive legal review before signing",
			"Consider substantial revisions to high-risk clauses",
			"Assess total financial exposure",
		)
	case models.RiskAmber:
		recommendations = append(recommendations,
			"Detailed review recommended",
			"Negotiate key terms where possible",
			"Ensure risk mitigation measures",
		)
	default:
		recommendations = append(recommendations,
			"Document appears acceptable with standard risk levels")
	}

	return recommendations
}
