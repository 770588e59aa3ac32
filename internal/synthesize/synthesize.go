// Package synthesize derives short insights from a set of professional profiles.
package synthesize

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/TobiSchelling/orgscout/internal/directory"
	"github.com/TobiSchelling/orgscout/internal/llm"
	"github.com/TobiSchelling/orgscout/internal/logging"
)

// FailureInsight is the single insight reported when generation fails.
const FailureInsight = "Unable to generate insights due to an error."

const systemPrompt = "You are a professional researcher who identifies patterns and insights from profiles."

const insightsPrompt = `Analyze the following professional profiles and generate insights:

Profiles:
%s
%s
Generate 3-5 meaningful insights about these professionals. Focus on:
1. Common skills or qualifications
2. Career trajectories
3. Industry patterns
4. Any other notable patterns

Respond with ONLY a JSON object of the form {"insights": ["insight", ...]}.`

// Synthesizer generates insights with an LLM.
type Synthesizer struct {
	provider  llm.Provider
	maxTokens int
	logger    *zap.Logger
}

// New creates a synthesizer. A nil provider always fails over to FailureInsight.
func New(provider llm.Provider, maxTokens int, logger *zap.Logger) *Synthesizer {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Synthesizer{provider: provider, maxTokens: maxTokens, logger: logging.OrNop(logger)}
}

// Synthesize returns insights about profiles. The boolean is false when the
// model could not be used, in which case the result is [FailureInsight].
func (s *Synthesizer) Synthesize(ctx context.Context, profiles []directory.Profile, organization string, roles []string) ([]string, bool) {
	if s.provider == nil {
		s.logger.Warn("no LLM provider available for insights")
		return []string{FailureInsight}, false
	}

	text, err := s.provider.Generate(ctx, llm.Request{
		Messages:  llm.System(systemPrompt, buildPrompt(profiles, organization, roles)),
		JSON:      true,
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		s.logger.Warn("insight generation failed", zap.Error(err))
		return []string{FailureInsight}, false
	}

	insights, err := parseInsights(text)
	if err != nil {
		s.logger.Warn("insight response unusable", zap.Error(err))
		return []string{FailureInsight}, false
	}
	return insights, true
}

func buildPrompt(profiles []directory.Profile, organization string, roles []string) string {
	var scope strings.Builder
	if organization != "" {
		fmt.Fprintf(&scope, "For organization: %s\n", organization)
	}
	if len(roles) > 0 {
		fmt.Fprintf(&scope, "For roles: %s\n", strings.Join(roles, ", "))
	}
	return fmt.Sprintf(insightsPrompt, directory.DescribeProfiles(profiles, 0), scope.String())
}

// parseInsights accepts a JSON list, an object with an "insights" list, or any
// other object, whose values are taken in key order.
func parseInsights(text string) ([]string, error) {
	v, ok := llm.ParseJSONValue(text)
	if !ok {
		return nil, fmt.Errorf("response is not JSON")
	}

	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case map[string]any:
		if list, ok := t["insights"].([]any); ok {
			items = list
			break
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			items = append(items, t[k])
		}
	default:
		return nil, fmt.Errorf("unexpected response type %T", v)
	}

	insights := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		switch x := item.(type) {
		case string:
			s = x
		case nil:
			continue
		default:
			s = fmt.Sprint(x)
		}
		if s = strings.TrimSpace(s); s != "" {
			insights = append(insights, s)
		}
	}
	if len(insights) == 0 {
		return nil, fmt.Errorf("response contains no insights")
	}
	return insights, nil
}
