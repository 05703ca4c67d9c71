package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"

	"redline-backend/models"
)

var ErrDatasetLoadFailed = errors.New("failed to load reference dataset")

// DatasetLoader produces labeled reference clauses for corpus ingestion. It
// reads a cached JSON export of annotated contract clauses when one exists
// and falls back to a small synthetic set otherwise, so the pipeline works
// out of the box.
type DatasetLoader struct {
	cachePath string
}

// NewDatasetLoader creates a loader reading from cachePath. An empty path
// means synthetic-only.
func NewDatasetLoader(cachePath string) *DatasetLoader {
	return &DatasetLoader{cachePath: cachePath}
}

// rawDatasetClause matches the cached JSON export's shape. Risk level,
// domain, and strength are recomputed when the export leaves them blank.
type rawDatasetClause struct {
	Text          string  `json:"text"`
	ContractTitle string  `json:"contract_title"`
	ClauseType    string  `json:"clause_type"`
	RiskLevel     string  `json:"risk_level"`
	Domain        string  `json:"contract_domain"`
	Source        string  `json:"source"`
	Strength      float64 `json:"precedent_strength"`
}

// Load returns the reference clauses, labeled and scored. Cache problems are
// logged and absorbed; the synthetic fallback means Load never fails.
func (l *DatasetLoader) Load() []models.ReferenceClause {
	if l.cachePath != "" {
		clauses, err := l.loadCached()
		if err != nil {
			log.Printf("Warning: could not load cached dataset, using synthetic clauses: %v", err)
		} else if len(clauses) > 0 {
			log.Printf("Loaded %d reference clauses from %s", len(clauses), l.cachePath)
			return clauses
		}
	}

	log.Println("Loading synthetic reference clauses")
	return syntheticClauses()
}

func (l *DatasetLoader) loadCached() ([]models.ReferenceClause, error) {
	data, err := os.ReadFile(l.cachePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatasetLoadFailed, err)
	}

	var raw []rawDatasetClause
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatasetLoadFailed, err)
	}

	clauses := make([]models.ReferenceClause, 0, len(raw))
	for _, item := range raw {
		text := strings.TrimSpace(item.Text)
		if len(text) < 50 {
			// short fragments make poor precedents
			continue
		}

		clauseType := item.ClauseType
		if clauseType == "" {
			clauseType = IdentifyClauseType(text)
		}

		level := models.RiskLevel(strings.ToUpper(item.RiskLevel))
		if !level.Valid() {
			level = ClassifyDatasetRisk(text, clauseType)
		}

		domain := item.Domain
		if domain == "" {
			domain = InferContractDomain(item.ContractTitle, text)
		}

		strength := item.Strength
		if strength <= 0 || strength > 1 {
			strength = PrecedentStrength(text)
		}

		source := item.Source
		if source == "" {
			source = "dataset"
		}

		clauses = append(clauses, models.ReferenceClause{
			Text:              text,
			RiskLevel:         level,
			ClauseType:        clauseType,
			ContractDomain:    domain,
			ContractTitle:     item.ContractTitle,
			Source:            source,
			PrecedentStrength: strength,
		})
	}

	return clauses, nil
}

// clauseTypeIndicators map a clause type to the keywords that signal it.
// Checked in order; the first type with a hit wins.
var clauseTypeIndicators = []struct {
	clauseType string
	keywords   []string
}{
	{"liability", []string{"liable", "liability", "damages", "harm"}},
	{"termination", []string{"terminate", "termination", "cancel"}},
	{"indemnification", []string{"indemnify", "indemnification", "hold harmless"}},
	{"confidentiality", []string{"confidential", "non-disclosure", "proprietary"}},
	{"intellectual_property", []string{"intellectual property", "patent", "copyright", "trademark"}},
	{"governing_law", []string{"governing law", "jurisdiction", "venue"}},
	{"force_majeure", []string{"force majeure", "act of god", "unforeseeable"}},
	{"warranty", []string{"warrant", "warranty", "guarantee", "represent"}},
	{"assignment", []string{"assign", "assignment", "transfer"}},
	{"notice", []string{"notice", "notify", "notification"}},
}

// IdentifyClauseType labels a clause with its legal category, or "general".
func IdentifyClauseType(text string) string {
	lower := strings.ToLower(text)
	for _, indicator := range clauseTypeIndicators {
		for _, keyword := range indicator.keywords {
			if strings.Contains(lower, keyword) {
				return indicator.clauseType
			}
		}
	}
	return "general"
}

var (
	highRiskDatasetPatterns = []*regexp.Regexp{
		regexp.MustCompile(`unlimited`),
		regexp.MustCompile(`personal guarantee`),
		regexp.MustCompile(`joint and several`),
		regexp.MustCompile(`liquidated damages`),
		regexp.MustCompile(`penalty`),
		regexp.MustCompile(`forfeiture`),
		regexp.MustCompile(`punitive`),
		regexp.MustCompile(`indemnify.*all`),
		regexp.MustCompile(`hold harmless.*all`),
		regexp.MustCompile(`irrevocable`),
		regexp.MustCompile(`non-compete`),
		regexp.MustCompile(`restraint.*trade`),
		regexp.MustCompile(`exclusivity`),
	}
	mediumRiskDatasetPatterns = []*regexp.Regexp{
		regexp.MustCompile(`material breach`),
		regexp.MustCompile(`default`),
		regexp.MustCompile(`termination`),
		regexp.MustCompile(`arbitration`),
		regexp.MustCompile(`governing law`),
		regexp.MustCompile(`intellectual property`),
		regexp.MustCompile(`confidential`),
		regexp.MustCompile(`warranty disclaimer`),
		regexp.MustCompile(`limitation.*liability`),
	}
)

// clauseTypeRiskMapping maps clause-type fragments to risk levels, used
// after the pattern scans come up empty.
var clauseTypeRiskMapping = map[string]models.RiskLevel{
	"indemnification": models.RiskRed,
	"non_compete":     models.RiskRed,
	"liability":       models.RiskRed,
	"assignment":      models.RiskRed,
	"termination":     models.RiskAmber,
	"warranty":        models.RiskAmber,
	"governing_law":   models.RiskAmber,
	"confidentiality": models.RiskAmber,
	"force_majeure":   models.RiskAmber,
	"intellectual":    models.RiskAmber,
	"notice":          models.RiskGreen,
}

// ClassifyDatasetRisk labels a reference clause for ingestion: high-risk
// patterns first, then medium, then the clause-type mapping, defaulting to
// GREEN. This labels corpus data only; live clauses go through the full
// classifier.
func ClassifyDatasetRisk(text, clauseType string) models.RiskLevel {
	lower := strings.ToLower(text)

	for _, pattern := range highRiskDatasetPatterns {
		if pattern.MatchString(lower) {
			return models.RiskRed
		}
	}
	for _, pattern := range mediumRiskDatasetPatterns {
		if pattern.MatchString(lower) {
			return models.RiskAmber
		}
	}

	lowerType := strings.ToLower(clauseType)
	for fragment, level := range clauseTypeRiskMapping {
		if strings.Contains(lowerType, fragment) {
			return level
		}
	}

	return models.RiskGreen
}

var domainKeywords = []struct {
	domain   string
	keywords []string
}{
	{"employment", []string{"employment", "employee", "salary", "benefits"}},
	{"software", []string{"software", "licensing", "code", "development", "saas"}},
	{"real_estate", []string{"property", "lease", "rent", "premises", "landlord"}},
	{"merger", []string{"merger", "acquisition", "purchase", "sale"}},
	{"service", []string{"service", "consulting", "professional"}},
	{"supply", []string{"supply", "vendor", "procurement", "goods"}},
	{"partnership", []string{"partnership", "joint venture", "collaboration"}},
	{"finance", []string{"loan", "credit", "financing", "investment", "securities"}},
}

// InferContractDomain guesses the contract domain from the title and body.
func InferContractDomain(title, text string) string {
	titleLower := strings.ToLower(title)
	textLower := strings.ToLower(text)

	for _, entry := range domainKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(titleLower, keyword) || strings.Contains(textLower, keyword) {
				return entry.domain
			}
		}
	}
	return "general"
}

// sophisticatedLegalTerms mark formal drafting; their presence raises a
// clause's precedent strength.
var sophisticatedLegalTerms = []string{"whereas", "therefore", "notwithstanding", "pursuant", "heretofore"}

// PrecedentStrength estimates how authoritative a reference clause is,
// independent of any query: base 0.5, raised by length and formal legal
// language, capped at 1.
func PrecedentStrength(text string) float64 {
	strength := 0.5

	wordCount := len(strings.Fields(text))
	switch {
	case wordCount > 100:
		strength += 0.2
	case wordCount > 50:
		strength += 0.1
	}

	lower := strings.ToLower(text)
	var termCount int
	for _, term := range sophisticatedLegalTerms {
		if strings.Contains(lower, term) {
			termCount++
		}
	}
	bonus := float64(termCount) * 0.1
	if bonus > 0.3 {
		bonus = 0.3
	}
	strength += bonus

	if strength > 1 {
		strength = 1
	}
	return strength
}

// syntheticClauses is the built-in fallback corpus: one representative
// clause per major risk pattern, enough for the retrieval paths to function
// before a real dataset is loaded.
func syntheticClauses() []models.ReferenceClause {
	return []models.ReferenceClause{
		{
			Text:              "The Company shall indemnify and hold harmless the Client against all claims, damages, and expenses arising from any breach of this Agreement.",
			RiskLevel:         models.RiskRed,
			ClauseType:        "indemnification",
			ContractDomain:    "service",
			ContractTitle:     "Service Agreement",
			Source:            "synthetic",
			PrecedentStrength: 0.8,
		},
		{
			Text:              "Either party may terminate this Agreement upon thirty (30) days written notice to the other party.",
			RiskLevel:         models.RiskAmber,
			ClauseType:        "termination",
			ContractDomain:    "general",
			ContractTitle:     "General Contract",
			Source:            "synthetic",
			PrecedentStrength: 0.7,
		},
		{
			Text:              "All notices required under this Agreement shall be given in writing and delivered by certified mail.",
			RiskLevel:         models.RiskGreen,
			ClauseType:        "notice",
			ContractDomain:    "general",
			ContractTitle:     "Standard Contract",
			Source:            "synthetic",
			PrecedentStrength: 0.6,
		},
		{
			Text:              "The Employee agrees not to compete with the Company for a period of two (2) years following termination of employment.",
			RiskLevel:         models.RiskRed,
			ClauseType:        "non_compete",
			ContractDomain:    "employment",
			ContractTitle:     "Employment Agreement",
			Source:            "synthetic",
			PrecedentStrength: 0.9,
		},
		{
			Text:              "This Agreement shall be governed by the laws of the State of California, without regard to conflict of law principles.",
			RiskLevel:         models.RiskAmber,
			ClauseType:        "governing_law",
			ContractDomain:    "service",
			ContractTitle:     "Service Agreement",
			Source:            "synthetic",
			PrecedentStrength: 0.7,
		},
	}
}
