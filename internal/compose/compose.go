// Package compose writes the markdown summary of a research run.
package compose

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/TobiSchelling/orgscout/internal/directory"
	"github.com/TobiSchelling/orgscout/internal/llm"
	"github.com/TobiSchelling/orgscout/internal/logging"
)

const (
	// NoProfiles and NoInsights stand in for empty sections.
	NoProfiles = "No profiles found."
	NoInsights = "No insights available."

	profileLimit = 5
)

const systemPrompt = "You are a professional researcher who creates comprehensive summaries of research findings."

const summaryInstructions = `Create a detailed research summary in Markdown format that includes:
1. A summary of the research request
2. Organization overview (if applicable)
3. Key professionals found
4. Patterns and insights
5. Recommendations for networking or further research

Make the summary actionable and insightful for a business professional.`

// Input is everything gathered by the earlier stages.
type Input struct {
	Query        string
	Organization *directory.OrganizationInfo
	Profiles     []directory.Profile
	Insights     []string
}

// Composer produces the summary with an LLM, or deterministically without one.
type Composer struct {
	provider  llm.Provider
	maxTokens int
	logger    *zap.Logger
}

// New creates a composer.
func New(provider llm.Provider, maxTokens int, logger *zap.Logger) *Composer {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Composer{provider: provider, maxTokens: maxTokens, logger: logging.OrNop(logger)}
}

// Compose returns a markdown summary. The boolean is false when the fallback
// summary was used. The result is never empty.
func (c *Composer) Compose(ctx context.Context, in Input) (string, bool) {
	if c.provider == nil {
		return FallbackSummary(in), false
	}

	text, err := c.provider.Generate(ctx, llm.Request{
		Messages:  llm.System(systemPrompt, BuildPrompt(in)),
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		c.logger.Warn("summary generation failed, using fallback", zap.Error(err))
		return FallbackSummary(in), false
	}

	text = strings.TrimSpace(text)
	if text == "" {
		c.logger.Warn("summary generation returned nothing, using fallback")
		return FallbackSummary(in), false
	}
	return text, true
}

// BuildPrompt renders the user prompt for in.
func BuildPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a comprehensive research summary based on the following:\n\nOriginal Query:\n%s\n\n", in.Query)

	if org := in.Organization; org != nil {
		fmt.Fprintf(&b, "Organization Information:\nName: %s\nIndustry: %s\nLocation: %s\nDescription: %s\n\n",
			org.Name, org.Industry, org.Location, org.Description)
	}

	b.WriteString("Professionals Found:\n")
	if len(in.Profiles) > 0 {
		b.WriteString(directory.DescribeProfiles(in.Profiles, profileLimit))
	} else {
		b.WriteString(NoProfiles)
	}

	b.WriteString("\n\nInsights:\n")
	if len(in.Insights) > 0 {
		b.WriteString(bullets(in.Insights))
	} else {
		b.WriteString(NoInsights)
	}

	b.WriteString("\n\n")
	b.WriteString(summaryInstructions)
	return b.String()
}

// FallbackSummary assembles a summary from in without a model.
func FallbackSummary(in Input) string {
	sections := []string{
		fmt.Sprintf("# Research Summary\n\n**Query:** %s", in.Query),
	}

	if org := in.Organization; org != nil {
		overview := fmt.Sprintf("## %s\n\n- **Industry:** %s\n- **Location:** %s\n\n%s",
			org.Name, org.Industry, org.Location, org.Description)
		if org.Website != "" {
			overview += fmt.Sprintf("\n\n[%s](%s)", org.Website, org.Website)
		}
		sections = append(sections, overview)
	}

	people := "## Professionals\n\n"
	if len(in.Profiles) > 0 {
		shown := in.Profiles
		if len(shown) > profileLimit {
			shown = shown[:profileLimit]
		}
		lines := make([]string, len(shown))
		for i, p := range shown {
			line := "- **" + p.Name + "**"
			if p.Title != "" {
				line += ", " + p.Title
			}
			if p.Organization != "" {
				line += " (" + p.Organization + ")"
			}
			lines[i] = line
		}
		people += strings.Join(lines, "\n")
		if extra := len(in.Profiles) - len(shown); extra > 0 {
			people += fmt.Sprintf("\n\n_%d more not shown._", extra)
		}
	} else {
		people += NoProfiles
	}
	sections = append(sections, people)

	insights := "## Insights\n\n"
	if len(in.Insights) > 0 {
		insights += bullets(in.Insights)
	} else {
		insights += NoInsights
	}
	sections = append(sections, insights)

	return strings.Join(sections, "\n\n")
}

func bullets(items []string) string {
	lines := make([]string, len(items))
	for i, s := range items {
		lines[i] = "- " + s
	}
	return strings.Join(lines, "\n")
}
