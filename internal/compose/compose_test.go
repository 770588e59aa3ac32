package compose

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/TobiSchelling/orgscout/internal/directory"
	"github.com/TobiSchelling/orgscout/internal/llm"
)

type mockProvider struct {
	response string
	err      error
	last     llm.Request
}

func (m *mockProvider) Generate(_ context.Context, req llm.Request) (string, error) {
	m.last = req
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

func googleInput() Input {
	org := directory.FallbackOrganization("Google")
	return Input{
		Query:        "software engineers at Google",
		Organization: &org,
		Profiles:     []directory.Profile{{Name: "Ada", Title: "Engineer", Organization: "Google"}},
		Insights:     []string{"Most have a CS degree"},
	}
}

func TestComposeFromModel(t *testing.T) {
	m := &mockProvider{response: "  # Summary\n\nAll good.  "}
	out, ok := New(m, 0, zaptest.NewLogger(t)).Compose(context.Background(), googleInput())
	assert.True(t, ok)
	assert.Equal(t, "# Summary\n\nAll good.", out)
	assert.False(t, m.last.JSON)

	require.Len(t, m.last.Messages, 2)
	prompt := m.last.Messages[1].Content
	assert.Contains(t, prompt, "Original Query:\nsoftware engineers at Google")
	assert.Contains(t, prompt, "Name: Google")
	assert.Contains(t, prompt, "1. Ada")
	assert.Contains(t, prompt, "- Most have a CS degree")
}

func TestBuildPromptPlaceholders(t *testing.T) {
	prompt := BuildPrompt(Input{Query: "nobody"})
	assert.Contains(t, prompt, NoProfiles)
	assert.Contains(t, prompt, NoInsights)
	assert.NotContains(t, prompt, "Organization Information")
}

func TestBuildPromptLimitsProfiles(t *testing.T) {
	var profiles []directory.Profile
	for i := 1; i <= 7; i++ {
		profiles = append(profiles, directory.Profile{Name: fmt.Sprintf("Person %d", i)})
	}
	prompt := BuildPrompt(Input{Query: "q", Profiles: profiles})
	assert.Contains(t, prompt, "5. Person 5")
	assert.NotContains(t, prompt, "Person 6")
}

func TestComposeFallsBack(t *testing.T) {
	cases := map[string]*mockProvider{
		"error": {err: errors.New("timeout")},
		"blank": {response: "   \n"},
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			in := googleInput()
			out, ok := New(m, 0, zaptest.NewLogger(t)).Compose(context.Background(), in)
			assert.False(t, ok)
			assert.Equal(t, FallbackSummary(in), out)
		})
	}

	out, ok := New(nil, 0, nil).Compose(context.Background(), Input{Query: "q"})
	assert.False(t, ok)
	assert.NotEmpty(t, out)
}

func TestFallbackSummary(t *testing.T) {
	out := FallbackSummary(googleInput())
	assert.Contains(t, out, "**Query:** software engineers at Google")
	assert.Contains(t, out, "## Google")
	assert.Contains(t, out, "Mountain View, CA")
	assert.Contains(t, out, "- **Ada**, Engineer (Google)")
	assert.Contains(t, out, "- Most have a CS degree")

	empty := FallbackSummary(Input{Query: "q"})
	assert.Contains(t, empty, NoProfiles)
	assert.Contains(t, empty, NoInsights)
}

func TestFallbackSummaryTruncatesProfiles(t *testing.T) {
	var profiles []directory.Profile
	for i := 1; i <= 8; i++ {
		profiles = append(profiles, directory.Profile{Name: fmt.Sprintf("Person %d", i)})
	}
	out := FallbackSummary(Input{Query: "q", Profiles: profiles})
	assert.Contains(t, out, "Person 5")
	assert.NotContains(t, out, "Person 6")
	assert.Contains(t, out, "_3 more not shown._")
}
