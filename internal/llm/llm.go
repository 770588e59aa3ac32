package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/orgscout/internal/logging"
)

// ErrNotConfigured is returned when no provider is available.
var ErrNotConfigured = errors.New("llm provider not configured")

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a chat request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is an ordered list of messages plus generation options.
type Request struct {
	Messages  []Message
	JSON      bool // ask the provider for a JSON object response
	MaxTokens int
}

// Provider is the interface for LLM providers.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
	IsConfigured() bool
}

// System and User build a two-message request, the shape every prompt here uses.
func System(system, user string) []Message {
	return []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	}
}

// OllamaProvider is a local Ollama LLM provider.
type OllamaProvider struct {
	Model   string
	BaseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(model, baseURL string, timeout time.Duration, logger *zap.Logger) *OllamaProvider {
	return &OllamaProvider{
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logging.OrNop(logger),
	}
}

// IsConfigured checks if Ollama is running and the model is available.
func (o *OllamaProvider) IsConfigured() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}

	modelBase := strings.SplitN(o.Model, ":", 2)[0]
	for _, m := range result.Models {
		if strings.Contains(m.Name, modelBase) {
			return true
		}
	}
	o.logger.Warn("ollama model not found", zap.String("model", o.Model))
	return false
}

// Generate sends the chat to Ollama and returns the response.
func (o *OllamaProvider) Generate(ctx context.Context, req Request) (string, error) {
	body := map[string]any{
		"model":    o.Model,
		"messages": req.Messages,
		"stream":   false,
		"options": map[string]any{
			"num_predict": req.MaxTokens,
			"temperature": 0.3,
		},
	}
	if req.JSON {
		body["format"] = "json"
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := postJSON(ctx, o.client, o.BaseURL+"/api/chat", nil, body, &result); err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	return result.Message.Content, nil
}

// OpenAIProvider is an OpenAI API provider.
type OpenAIProvider struct {
	Model   string
	APIKey  string
	BaseURL string
	client  *http.Client
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(model, apiKey string, timeout time.Duration) *OpenAIProvider {
	return &OpenAIProvider{
		Model:   model,
		APIKey:  apiKey,
		BaseURL: "https://api.openai.com/v1",
		client:  &http.Client{Timeout: timeout},
	}
}

// IsConfigured checks if the API key is set.
func (o *OpenAIProvider) IsConfigured() bool {
	return o.APIKey != ""
}

// Generate sends the chat to OpenAI and returns the first choice.
func (o *OpenAIProvider) Generate(ctx context.Context, req Request) (string, error) {
	if o.APIKey == "" {
		return "", fmt.Errorf("openai: %w", ErrNotConfigured)
	}

	body := map[string]any{
		"model":       o.Model,
		"messages":    req.Messages,
		"temperature": 0.3,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.JSON {
		body["response_format"] = map[string]string{"type": "json_object"}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	headers := map[string]string{"Authorization": "Bearer " + o.APIKey}
	if err := postJSON(ctx, o.client, o.BaseURL+"/chat/completions", headers, body, &result); err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices in response")
	}
	return result.Choices[0].Message.Content, nil
}

func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Settings selects and configures a provider.
type Settings struct {
	Provider  string
	Model     string
	OllamaURL string
	APIKey    string
	Timeout   time.Duration
}

// CreateProvider creates an LLM provider based on configuration. It returns
// nil when nothing usable is configured; callers fall back deterministically.
func CreateProvider(ctx context.Context, s Settings, logger *zap.Logger) Provider {
	logger = logging.OrNop(logger)
	if s.Timeout <= 0 {
		s.Timeout = 60 * time.Second
	}

	switch strings.ToLower(s.Provider) {
	case "none":
		logger.Info("LLM disabled by configuration")
		return nil
	case "ollama":
		p := NewOllamaProvider(s.Model, s.OllamaURL, s.Timeout, logger)
		if p.IsConfigured() {
			logger.Info("using Ollama", zap.String("model", s.Model))
			return p
		}
		logger.Warn("Ollama not available, LLM stages will use fallbacks")
		return nil
	case "gemini":
		p, err := NewGeminiProvider(ctx, s.Model, s.APIKey, s.Timeout)
		if err != nil {
			logger.Warn("Gemini not available, LLM stages will use fallbacks", zap.Error(err))
			return nil
		}
		logger.Info("using Gemini", zap.String("model", s.Model))
		return p
	}

	p := NewOpenAIProvider(s.Model, s.APIKey, s.Timeout)
	if p.IsConfigured() {
		logger.Info("using OpenAI", zap.String("model", s.Model))
		return p
	}

	logger.Warn("no LLM provider available; set OPENAI_API_KEY or configure another provider")
	return nil
}
