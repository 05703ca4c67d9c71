package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	"redline-backend/repository"
)

const (
	defaultEmbeddingAPI      = "https://generativelanguage.googleapis.com/v1beta/models/gemini-embedding-001:embedContent"
	defaultBatchEmbeddingAPI = "https://generativelanguage.googleapis.com/v1beta/models/gemini-embedding-001:batchEmbedContents"
	embeddingModel           = "models/gemini-embedding-001"
	maxRetries               = 3
	initialBackoff           = time.Second
)

var ErrEmbeddingFailed = errors.New("failed to generate embedding")

// Embedder converts text into a fixed-length vector. Identical input must
// yield an identical vector so that corpus and query embeddings are
// comparable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// EmbeddingRequest represents an embedding API request
type EmbeddingRequest struct {
	Model                string       `json:"model"`
	Content              ContentInput `json:"content"`
	TaskType             string       `json:"task_type,omitempty"`
	OutputDimensionality int          `json:"output_dimensionality,omitempty"`
}

// ContentInput represents content for embedding
type ContentInput struct {
	Parts []PartInput `json:"parts"`
}

// PartInput represents a part of content
type PartInput struct {
	Text string `json:"text"`
}

// EmbeddingResponse represents an embedding API response
type EmbeddingResponse struct {
	Embedding EmbeddingData `json:"embedding"`
}

// EmbeddingData contains the embedding values
type EmbeddingData struct {
	Values []float64 `json:"values"`
}

// BatchEmbeddingRequest represents a batch embedding API request
type BatchEmbeddingRequest struct {
	Requests []EmbeddingRequest `json:"requests"`
}

// BatchEmbeddingItem is the structure returned by the batch API (no nested
// "embedding" key)
type BatchEmbeddingItem struct {
	Values []float64 `json:"values"`
}

// BatchEmbeddingResponse represents a batch embedding API response
type BatchEmbeddingResponse struct {
	Embeddings []BatchEmbeddingItem `json:"embeddings"`
}

// GeminiEmbedder generates embeddings via the Gemini embedding API over HTTP.
type GeminiEmbedder struct {
	apiKey        string
	endpoint      string
	batchEndpoint string
	client        *http.Client
}

// GeminiEmbedderOption configures a GeminiEmbedder
type GeminiEmbedderOption func(*GeminiEmbedder)

// EmbedderWithEndpoints overrides the API endpoints, used by tests.
func EmbedderWithEndpoints(single, batch string) GeminiEmbedderOption {
	return func(e *GeminiEmbedder) {
		e.endpoint = single
		e.batchEndpoint = batch
	}
}

// EmbedderWithHTTPClient overrides the HTTP client
func EmbedderWithHTTPClient(client *http.Client) GeminiEmbedderOption {
	return func(e *GeminiEmbedder) {
		e.client = client
	}
}

// NewGeminiEmbedder creates a Gemini embedder. The API key is read from
// GEMINI_API_KEY when empty.
func NewGeminiEmbedder(apiKey string, opts ...GeminiEmbedderOption) *GeminiEmbedder {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	e := &GeminiEmbedder{
		apiKey:        apiKey,
		endpoint:      defaultEmbeddingAPI,
		batchEndpoint: defaultBatchEmbeddingAPI,
		client:        &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Embed generates a query embedding for the given text with retry and
// exponential backoff. The result is L2-normalized.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if e.apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	reqBody := EmbeddingRequest{
		Model: embeddingModel,
		Content: ContentInput{
			Parts: []PartInput{{Text: text}},
		},
		TaskType:             "RETRIEVAL_QUERY",
		OutputDimensionality: repository.EmbeddingDimensions,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, "POST", e.endpoint, bytes.NewBuffer(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", e.apiKey)

		resp, err := e.client.Do(req)
		if err != nil {
			if attempt == maxRetries-1 {
				return nil, fmt.Errorf("failed to send request after %d attempts: %w", maxRetries, err)
			}
			continue
		}

		if resp.StatusCode == http.StatusOK {
			var apiResp EmbeddingResponse
			if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
				resp.Body.Close()
				if attempt == maxRetries-1 {
					return nil, fmt.Errorf("failed to decode response: %w", err)
				}
				continue
			}
			resp.Body.Close()

			embedding := apiResp.Embedding.Values
			normalizeEmbedding(embedding)
			return embedding, nil
		}

		resp.Body.Close()

		// Don't retry on 400 or 401 errors
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("API error: %d", resp.StatusCode)
		}

		if attempt == maxRetries-1 {
			return nil, fmt.Errorf("API error after %d attempts: %d", maxRetries, resp.StatusCode)
		}
	}

	return nil, ErrEmbeddingFailed
}

// EmbedBatch generates document embeddings for a batch of texts, used during
// corpus ingestion. Results are L2-normalized and returned in input order.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if e.apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	const batchSize = 100 // Google's API limit

	embeddings := make([][]float64, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		requests := make([]EmbeddingRequest, 0, end-i)
		for _, text := range texts[i:end] {
			requests = append(requests, EmbeddingRequest{
				Model: embeddingModel,
				Content: ContentInput{
					Parts: []PartInput{{Text: text}},
				},
				TaskType:             "RETRIEVAL_DOCUMENT",
				OutputDimensionality: repository.EmbeddingDimensions,
			})
		}

		jsonData, err := json.Marshal(BatchEmbeddingRequest{Requests: requests})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal batch request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", e.batchEndpoint, bytes.NewBuffer(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", e.apiKey)

		resp, err := e.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to send request: %w", err)
		}

		var apiResp BatchEmbeddingResponse
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("API error: %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		resp.Body.Close()

		if len(apiResp.Embeddings) != end-i {
			return nil, fmt.Errorf("mismatch: got %d embeddings for %d texts in batch", len(apiResp.Embeddings), end-i)
		}

		for _, item := range apiResp.Embeddings {
			if len(item.Values) == 0 {
				return nil, fmt.Errorf("batch item has empty embedding")
			}
			normalizeEmbedding(item.Values)
			embeddings = append(embeddings, item.Values)
		}

		// Brief sleep to avoid rate limits
		if end < len(texts) {
			time.Sleep(100 * time.Millisecond)
		}
	}

	return embeddings, nil
}

// normalizeEmbedding scales the vector to unit L2 norm in place. Required for
// output dimensionalities below the model's native size.
func normalizeEmbedding(embedding []float64) {
	var sumSq float64
	for _, v := range embedding {
		sumSq += v * v
	}
	if sumSq == 0 {
		return
	}

	norm := math.Sqrt(sumSq)
	for i := range embedding {
		embedding[i] /= norm
	}
}
