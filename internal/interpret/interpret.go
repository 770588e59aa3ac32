// Package interpret extracts structured research intent from a free-text query.
package interpret

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/TobiSchelling/orgscout/internal/llm"
	"github.com/TobiSchelling/orgscout/internal/logging"
)

const systemPrompt = "You are a professional research assistant that extracts structured information from queries."

const analysisPrompt = `Analyze the following professional research query and extract key information:

Query: %q

Extract the following information:
1. Target organization name (if any)
2. Professional roles of interest (e.g., software engineer, product manager)
3. Technologies or skills mentioned (e.g., Python, machine learning)

Respond with ONLY a JSON object with these keys:
- organization: the target organization name (null if none specified)
- roles: array of professional roles mentioned, in singular form
- technologies: array of technologies or skills mentioned`

var responseSchema = llm.MustSchema(`{
	"type": "object",
	"properties": {
		"organization": {"type": ["string", "null"]},
		"company": {"type": ["string", "null"]},
		"roles": {"type": "array", "items": {"type": "string"}},
		"technologies": {"type": "array", "items": {"type": "string"}}
	}
}`)

// Interpretation is the structured intent behind a query.
type Interpretation struct {
	Organization *string  `json:"organization"`
	Roles        []string `json:"roles"`
	Technologies []string `json:"technologies"`
}

// OrganizationName returns the organization or "" when none was extracted.
func (i Interpretation) OrganizationName() string {
	if i.Organization == nil {
		return ""
	}
	return *i.Organization
}

// Fallback is the deterministic interpretation used whenever the model fails.
func Fallback(query string) Interpretation {
	return Interpretation{
		Organization: nil,
		Roles:        []string{query},
		Technologies: []string{},
	}
}

// Interpreter asks an LLM to interpret research queries.
type Interpreter struct {
	provider  llm.Provider
	maxTokens int
	logger    *zap.Logger
}

// New creates an interpreter. A nil provider always yields the fallback.
func New(provider llm.Provider, maxTokens int, logger *zap.Logger) *Interpreter {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &Interpreter{provider: provider, maxTokens: maxTokens, logger: logging.OrNop(logger)}
}

// Interpret extracts organization, roles and technologies from query. The
// second return value reports whether the model produced the result; when it
// is false the result is Fallback(query). It never fails.
func (in *Interpreter) Interpret(ctx context.Context, query string) (Interpretation, bool) {
	if in.provider == nil {
		return Fallback(query), false
	}

	text, err := in.provider.Generate(ctx, llm.Request{
		Messages:  llm.System(systemPrompt, fmt.Sprintf(analysisPrompt, query)),
		JSON:      true,
		MaxTokens: in.maxTokens,
	})
	if err != nil {
		in.logger.Warn("query analysis failed, using fallback", zap.Error(err))
		return Fallback(query), false
	}

	result, err := parse(text)
	if err != nil {
		in.logger.Warn("query analysis unparseable, using fallback", zap.Error(err))
		return Fallback(query), false
	}
	return result, true
}

func parse(text string) (Interpretation, error) {
	text = llm.CleanJSON(text)
	if text == "" {
		return Interpretation{}, fmt.Errorf("empty response")
	}
	if err := responseSchema.Validate(text); err != nil {
		return Interpretation{}, err
	}

	var raw struct {
		Organization *string  `json:"organization"`
		Company      *string  `json:"company"`
		Roles        []string `json:"roles"`
		Technologies []string `json:"technologies"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Interpretation{}, fmt.Errorf("decoding analysis: %w", err)
	}

	org := raw.Organization
	if org == nil {
		org = raw.Company
	}
	if org != nil {
		trimmed := strings.TrimSpace(*org)
		org = &trimmed
		if trimmed == "" {
			org = nil
		}
	}

	return Interpretation{
		Organization: org,
		Roles:        compact(raw.Roles),
		Technologies: compact(raw.Technologies),
	}, nil
}

// compact trims entries and drops empty ones, keeping order.
func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
