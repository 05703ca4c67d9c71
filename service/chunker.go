package service

import (
	"regexp"
	"strings"

	"redline-backend/models"
)

const (
	// chunkSize and chunkOverlap control the sliding split over cleaned
	// text. Overlap keeps clause boundaries from being cut mid-sentence.
	chunkSize    = 500
	chunkOverlap = 50

	// minClauseWords is the shortest chunk considered a clause candidate.
	minClauseWords = 10
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// strips control and decorative characters while keeping letters in any
	// script and the basic punctuation contracts actually use.
	specialCharsRe = regexp.MustCompile(`[^\p{L}\p{N}_\s.,;:!?()-]`)
)

// clauseIndicatorKeywords flag a chunk as a likely contract clause. One hit
// plus reasonable length is enough; the rule scorer does the real analysis
// downstream.
var clauseIndicatorKeywords = []string{
	"shall", "agree", "covenant", "warrant", "represent", "obligation",
	"liability", "indemnify", "terminate", "breach", "default", "penalty",
	"damages", "force majeure", "confidential", "proprietary", "intellectual property",
	"governing law", "jurisdiction", "arbitration", "dispute", "remedy",
}

// chunkSeparators are tried in order when looking for a split point near the
// chunk boundary, from strongest break to weakest.
var chunkSeparators = []string{"\n\n", "\n", ". ", " "}

// DocumentChunker splits raw contract text into overlapping chunks and flags
// the ones that look like clauses.
type DocumentChunker struct{}

func NewDocumentChunker() *DocumentChunker {
	return &DocumentChunker{}
}

// CleanText normalizes whitespace and strips decorative characters.
func (c *DocumentChunker) CleanText(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = specialCharsRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Chunk splits the text into chunks of roughly chunkSize characters with
// chunkOverlap characters of overlap, preferring to break at paragraph,
// line, or sentence boundaries.
func (c *DocumentChunker) Chunk(text string) []models.DocumentChunk {
	cleaned := c.CleanText(text)
	if cleaned == "" {
		return nil
	}

	var chunks []models.DocumentChunk
	start := 0
	index := 0
	for start < len(cleaned) {
		end := start + chunkSize
		if end >= len(cleaned) {
			end = len(cleaned)
		} else {
			end = splitPoint(cleaned, start, end)
		}

		chunkText := strings.TrimSpace(cleaned[start:end])
		if chunkText != "" {
			chunks = append(chunks, models.DocumentChunk{
				ChunkIndex: index,
				Text:       chunkText,
				IsClause:   c.isPotentialClause(chunkText),
				WordCount:  len(strings.Fields(chunkText)),
			})
			index++
		}

		if end >= len(cleaned) {
			break
		}
		next := end - chunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// splitPoint finds the best break position at or before end, scanning the
// separator list from strongest to weakest. Falls back to a hard cut when
// no separator lands in the chunk.
func splitPoint(text string, start, end int) int {
	window := text[start:end]
	for _, sep := range chunkSeparators {
		if idx := strings.LastIndex(window, sep); idx > 0 {
			return start + idx + len(sep)
		}
	}
	return end
}

// isPotentialClause reports whether a chunk reads like a contract clause:
// at least one legal keyword and a reasonable length.
func (c *DocumentChunker) isPotentialClause(text string) bool {
	if len(strings.Fields(text)) < minClauseWords {
		return false
	}
	lower := strings.ToLower(text)
	for _, keyword := range clauseIndicatorKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// ProcessedDocument is the chunker's summary of one source document.
type ProcessedDocument struct {
	Chunks       []models.DocumentChunk
	TotalChunks  int
	TotalClauses int
	WordCount    int
}

// Process runs the full pipeline over raw text: clean, chunk, flag clauses.
func (c *DocumentChunker) Process(text string) ProcessedDocument {
	chunks := c.Chunk(text)

	var clauses int
	for _, chunk := range chunks {
		if chunk.IsClause {
			clauses++
		}
	}

	return ProcessedDocument{
		Chunks:       chunks,
		TotalChunks:  len(chunks),
		TotalClauses: clauses,
		WordCount:    len(strings.Fields(c.CleanText(text))),
	}
}
