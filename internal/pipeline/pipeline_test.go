package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/TobiSchelling/orgscout/internal/compose"
	"github.com/TobiSchelling/orgscout/internal/directory"
	"github.com/TobiSchelling/orgscout/internal/interpret"
	"github.com/TobiSchelling/orgscout/internal/llm"
	"github.com/TobiSchelling/orgscout/internal/synthesize"
	"github.com/TobiSchelling/orgscout/internal/trace"
)

type scriptedLLM struct {
	response string
}

func (s *scriptedLLM) Generate(_ context.Context, _ llm.Request) (string, error) {
	return s.response, nil
}

func (s *scriptedLLM) IsConfigured() bool { return true }

type peopleProvider struct {
	people map[string][]directory.Profile
	terms  []string
}

func (p *peopleProvider) FindOrganization(_ context.Context, _ string) (*directory.OrganizationInfo, error) {
	return nil, nil
}

func (p *peopleProvider) SearchPeople(_ context.Context, term string) ([]directory.Profile, error) {
	p.terms = append(p.terms, term)
	return p.people[term], nil
}

type panickingSynthesizer struct{}

func (panickingSynthesizer) Synthesize(context.Context, []directory.Profile, string, []string) ([]string, bool) {
	panic("synthesizer exploded")
}

type fixedInterpreter struct {
	result    interpret.Interpretation
	fromModel bool
}

func (f fixedInterpreter) Interpret(context.Context, string) (interpret.Interpretation, bool) {
	return f.result, f.fromModel
}

func stepClock() func() time.Time {
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(100 * time.Millisecond)
		return t
	}
}

func newPipeline(t *testing.T, in Interpreter, provider directory.Provider, syn Synthesizer, opts Options) *Pipeline {
	t.Helper()
	logger := zaptest.NewLogger(t)
	if syn == nil {
		syn = synthesize.New(nil, 0, logger)
	}
	if opts.Clock == nil {
		opts.Clock = stepClock()
	}
	return New(in, directory.New(provider, nil, logger), syn, compose.New(nil, 0, logger), opts, logger)
}

func descriptions(steps []trace.Record) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Description
	}
	return out
}

func assertAllClosed(t *testing.T, steps []trace.Record) {
	t.Helper()
	for _, s := range steps {
		assert.NotEqual(t, trace.StatusInProgress, s.Status, s.Description)
		assert.NotNil(t, s.EndTime, s.Description)
		assert.NotNil(t, s.Duration, s.Description)
	}
}

func TestRunGoogleScenario(t *testing.T) {
	llmOut := &scriptedLLM{response: `{"organization": "Google", "roles": ["software engineer"], "technologies": []}`}
	provider := &peopleProvider{}
	p := newPipeline(t, interpret.New(llmOut, 0, nil), provider, nil, Options{})

	res := p.Run(context.Background(), "software engineers at Google")

	require.False(t, res.Failed())
	assertAllClosed(t, res.Steps)
	assert.Equal(t, []string{
		StepInit,
		StepAnalyze,
		"Researching organization: Google",
		StepSearch,
		StepBroaderSearch,
		StepSummary,
	}, descriptions(res.Steps))

	require.NotNil(t, res.Organization)
	assert.Equal(t, "Technology", res.Organization.Industry)
	assert.Equal(t, directory.SourceBuiltin, res.Organization.Source)
	assert.Equal(t, []string{"software engineer at Google", "software engineers at Google"}, provider.terms)

	assert.Equal(t, trace.StatusFailed, res.Steps[3].Status)
	assert.Equal(t, trace.StatusFailed, res.Steps[4].Status)
	assert.Contains(t, res.Summary, "Google")
	assert.Contains(t, res.Summary, compose.NoProfiles)

	require.NotNil(t, res.Steps[1].Confidence)
	assert.InDelta(t, 0.9, *res.Steps[1].Confidence, 1e-9)
	require.NotNil(t, res.Steps[2].Confidence)
	assert.InDelta(t, 0.7, *res.Steps[2].Confidence, 1e-9)

	var analysis interpret.Interpretation
	require.NoError(t, res.Steps[1].Result.Decode(&analysis))
	assert.Equal(t, "Google", analysis.OrganizationName())
	assert.Equal(t, []string{"software engineer"}, analysis.Roles)
}

func TestRunEmptyQuery(t *testing.T) {
	provider := &peopleProvider{}
	p := newPipeline(t, interpret.New(nil, 0, nil), provider, nil, Options{})

	res := p.Run(context.Background(), "")

	require.False(t, res.Failed())
	assertAllClosed(t, res.Steps)
	for _, d := range descriptions(res.Steps) {
		assert.NotContains(t, d, "Researching organization")
	}
	assert.Equal(t, []string{"", ""}, provider.terms)
	assert.Nil(t, res.Organization)
	assert.Contains(t, res.Summary, "No profiles found")

	require.NotNil(t, res.Steps[1].Confidence)
	assert.InDelta(t, 0.3, *res.Steps[1].Confidence, 1e-9)
	assert.JSONEq(t, `{"organization": null, "roles": [""], "technologies": []}`, res.Steps[1].Result.Text())
}

func TestRunExactlyOneBroaderSearch(t *testing.T) {
	provider := &peopleProvider{}
	in := fixedInterpreter{result: interpret.Interpretation{Roles: []string{"designer"}, Technologies: []string{}}}
	res := newPipeline(t, in, provider, nil, Options{}).Run(context.Background(), "designers")

	broader := 0
	for _, d := range descriptions(res.Steps) {
		if d == StepBroaderSearch {
			broader++
		}
	}
	assert.Equal(t, 1, broader)
	assert.Len(t, provider.terms, 2)
}

func TestRunWithProfiles(t *testing.T) {
	provider := &peopleProvider{people: map[string][]directory.Profile{
		"engineer": {{Name: "Ada", Title: "Engineer"}, {Name: "Grace", Title: "Engineer"}},
	}}
	in := fixedInterpreter{result: interpret.Interpretation{Roles: []string{"engineer"}, Technologies: []string{}}, fromModel: true}
	res := newPipeline(t, in, provider, nil, Options{}).Run(context.Background(), "engineers")

	require.False(t, res.Failed())
	assert.Equal(t, []string{StepInit, StepAnalyze, StepSearch, StepInsights, StepSummary}, descriptions(res.Steps))
	assert.Len(t, res.Profiles, 2)
	assert.JSONEq(t, `{"profiles_found": 2}`, res.Steps[2].Result.Text())
}

func TestRunSynthesisFailureStillCompletes(t *testing.T) {
	provider := &peopleProvider{people: map[string][]directory.Profile{"engineer": {{Name: "Ada"}}}}
	in := fixedInterpreter{result: interpret.Interpretation{Roles: []string{"engineer"}, Technologies: []string{}}}
	res := newPipeline(t, in, provider, nil, Options{}).Run(context.Background(), "engineers")

	require.False(t, res.Failed())
	assert.Equal(t, []string{synthesize.FailureInsight}, res.Insights)
	insightStep := res.Steps[3]
	assert.Equal(t, StepInsights, insightStep.Description)
	assert.Equal(t, trace.StatusFailed, insightStep.Status)
	assert.NotEmpty(t, res.Summary)
	assert.Equal(t, trace.StatusCompleted, res.Steps[len(res.Steps)-1].Status)
}

func TestRunRecoversFromPanic(t *testing.T) {
	provider := &peopleProvider{people: map[string][]directory.Profile{"engineer": {{Name: "Ada"}}}}
	in := fixedInterpreter{result: interpret.Interpretation{Roles: []string{"engineer"}, Technologies: []string{}}}
	res := newPipeline(t, in, provider, panickingSynthesizer{}, Options{}).Run(context.Background(), "engineers")

	require.True(t, res.Failed())
	assert.Equal(t, "synthesizer exploded", res.Error)
	assertAllClosed(t, res.Steps)
	assert.Len(t, res.Profiles, 1)
	assert.Empty(t, res.Summary)

	last := res.Steps[len(res.Steps)-1]
	assert.Equal(t, ErrorStep, last.Description)
	assert.Equal(t, trace.StatusFailed, last.Status)
	assert.JSONEq(t, `{"error_message": "synthesizer exploded"}`, last.Result.Text())

	open := res.Steps[len(res.Steps)-2]
	assert.Equal(t, StepInsights, open.Description)
	assert.Equal(t, trace.StatusFailed, open.Status)
}

func TestRunSyntheticProfiles(t *testing.T) {
	in := fixedInterpreter{result: interpret.Interpretation{Organization: strPtr("Acme"), Roles: []string{"data scientist"}, Technologies: []string{}}}

	res := newPipeline(t, in, &peopleProvider{}, nil, Options{SyntheticProfiles: true}).Run(context.Background(), "data scientists at Acme")
	require.False(t, res.Failed())
	assert.Contains(t, descriptions(res.Steps), StepSynthetic)
	assert.Len(t, res.Profiles, 3)
	assert.Equal(t, "Acme", res.Profiles[0].Organization)
	assert.Contains(t, descriptions(res.Steps), StepInsights)

	off := newPipeline(t, in, &peopleProvider{}, nil, Options{}).Run(context.Background(), "data scientists at Acme")
	assert.NotContains(t, descriptions(off.Steps), StepSynthetic)
	assert.Empty(t, off.Profiles)
}

func TestRunStepTiming(t *testing.T) {
	in := fixedInterpreter{result: interpret.Interpretation{Roles: []string{"x"}, Technologies: []string{}}}
	res := newPipeline(t, in, &peopleProvider{}, nil, Options{}).Run(context.Background(), "x")

	for i, s := range res.Steps {
		require.NotNil(t, s.Duration)
		assert.InDelta(t, 0.1, *s.Duration, 1e-9, "step %d", i)
		if i > 0 {
			assert.True(t, s.StartTime.After(res.Steps[i-1].StartTime))
		}
	}
}

func strPtr(s string) *string { return &s }
