package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

const generativeModel = "gemini-3-pro-preview"

var (
	// ErrGenerativeUnavailable means no generative model was configured at
	// construction time. The analyzer degrades to the precedent-consensus
	// fallback.
	ErrGenerativeUnavailable = errors.New("generative model not available")

	// ErrGenerativeCallFailed wraps per-call failures of an otherwise
	// configured model.
	ErrGenerativeCallFailed = errors.New("generative model call failed")
)

// Completer produces a free-text completion for a prompt. It is required for
// quality, never for correctness: every caller must tolerate its absence or
// failure.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeminiCompleter generates completions through the Gemini SDK.
type GeminiCompleter struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiCompleter creates a completer backed by a Gemini client. A nil
// client is a construction-time failure.
func NewGeminiCompleter(client *genai.Client) (*GeminiCompleter, error) {
	if client == nil {
		return nil, ErrGenerativeUnavailable
	}
	return &GeminiCompleter{
		client:      client,
		model:       generativeModel,
		temperature: 0.2,
	}, nil
}

// Complete sends the prompt to Gemini and concatenates the text parts of the
// first candidate.
func (g *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(g.temperature)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerativeCallFailed, err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates returned", ErrGenerativeCallFailed)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				builder.WriteString(string(text))
			}
		}
	}

	result := builder.String()
	if result == "" {
		return "", fmt.Errorf("%w: empty completion", ErrGenerativeCallFailed)
	}

	return result, nil
}
