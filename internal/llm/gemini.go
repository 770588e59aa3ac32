package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider implements Provider for Google Gemini.
type GeminiProvider struct {
	Model   string
	client  *genai.Client
	timeout time.Duration
}

// NewGeminiProvider creates a Gemini provider. Each Generate call is bounded
// by timeout; zero means no bound.
func NewGeminiProvider(ctx context.Context, model, apiKey string, timeout time.Duration) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrNotConfigured)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{Model: model, client: client, timeout: timeout}, nil
}

// IsConfigured reports whether a client was created.
func (g *GeminiProvider) IsConfigured() bool {
	return g.client != nil
}

// Generate sends the chat to Gemini. System messages become the system
// instruction; the rest are sent as content parts in order.
func (g *GeminiProvider) Generate(ctx context.Context, req Request) (string, error) {
	model := g.client.GenerativeModel(g.Model)
	model.SetTemperature(0.3)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	var parts []genai.Part
	var system []string
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))}}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("gemini: request has no user content")
	}

	ctx, cancel := g.callContext(ctx)
	defer cancel()

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini: failed to generate content: %w", err)
	}
	return extractText(resp)
}

func (g *GeminiProvider) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

// Close releases resources held by the client.
func (g *GeminiProvider) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: no content in response")
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			texts = append(texts, string(text))
		}
	}
	if len(texts) == 0 {
		return "", fmt.Errorf("gemini: no text parts in response")
	}
	return strings.Join(texts, ""), nil
}
