package synthesize

import (
	"context"
	"errors"
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

var testProfiles = []directory.Profile{
	{Name: "Ada", Title: "Engineer", Organization: "Acme", Expertise: []string{"Go"}},
	{Name: "Grace", Title: "Staff Engineer", Organization: "Acme", Expertise: []string{"Compilers"}},
}

func TestSynthesizeResponseShapes(t *testing.T) {
	cases := map[string]struct {
		response string
		want     []string
	}{
		"list":         {`["one", "two"]`, []string{"one", "two"}},
		"insights key": {`{"insights": ["one", " ", "two"]}`, []string{"one", "two"}},
		"other object": {`{"b": "second", "a": "first"}`, []string{"first", "second"}},
		"fenced":       {"```json\n[\"one\"]\n```", []string{"one"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s := New(&mockProvider{response: tc.response}, 0, zaptest.NewLogger(t))
			got, ok := s.Synthesize(context.Background(), testProfiles, "Acme", []string{"engineer"})
			assert.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSynthesizePrompt(t *testing.T) {
	m := &mockProvider{response: `["x"]`}
	s := New(m, 0, nil)
	s.Synthesize(context.Background(), testProfiles, "Acme", []string{"engineer", "manager"})

	require.Len(t, m.last.Messages, 2)
	assert.True(t, m.last.JSON)
	user := m.last.Messages[1].Content
	assert.Contains(t, user, "1. Ada")
	assert.Contains(t, user, "2. Grace")
	assert.Contains(t, user, "For organization: Acme")
	assert.Contains(t, user, "For roles: engineer, manager")
}

func TestSynthesizeFailures(t *testing.T) {
	cases := map[string]*mockProvider{
		"error":     {err: errors.New("boom")},
		"not json":  {response: "There are many engineers."},
		"empty":     {response: `[]`},
		"scalar":    {response: `42`},
		"blank all": {response: `{"insights": [""]}`},
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			got, ok := New(m, 0, zaptest.NewLogger(t)).Synthesize(context.Background(), testProfiles, "", nil)
			assert.False(t, ok)
			assert.Equal(t, []string{FailureInsight}, got)
		})
	}
}

func TestSynthesizeWithoutProvider(t *testing.T) {
	got, ok := New(nil, 0, nil).Synthesize(context.Background(), testProfiles, "", nil)
	assert.False(t, ok)
	assert.Equal(t, []string{FailureInsight}, got)
}
