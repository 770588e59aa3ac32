// Package pipeline runs a research query through interpretation, lookup,
// search, synthesis and composition while recording a step trace.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/orgscout/internal/compose"
	"github.com/TobiSchelling/orgscout/internal/directory"
	"github.com/TobiSchelling/orgscout/internal/interpret"
	"github.com/TobiSchelling/orgscout/internal/logging"
	"github.com/TobiSchelling/orgscout/internal/metrics"
	"github.com/TobiSchelling/orgscout/internal/trace"
)

// ErrorStep is the description of the step appended when a run aborts.
const ErrorStep = "Error in research process"

// Step descriptions.
const (
	StepInit          = "Initializing research"
	StepAnalyze       = "Analyzing query"
	StepSearch        = "Searching for professionals"
	StepBroaderSearch = "Attempting broader search"
	StepSynthetic     = "Generating representative profiles"
	StepInsights      = "Analyzing professional profiles"
	StepSummary       = "Creating research summary"
)

const (
	modelConfidence    = 0.9
	fallbackConfidence = 0.3
)

// Interpreter extracts research intent.
type Interpreter interface {
	Interpret(ctx context.Context, query string) (interpret.Interpretation, bool)
}

// Directory finds organizations and people.
type Directory interface {
	LookupOrganization(ctx context.Context, name string) directory.OrganizationInfo
	SearchPeople(ctx context.Context, term, organization string) []directory.Profile
	SyntheticProfiles(role, organization string) []directory.Profile
}

// Synthesizer derives insights from profiles.
type Synthesizer interface {
	Synthesize(ctx context.Context, profiles []directory.Profile, organization string, roles []string) ([]string, bool)
}

// Composer writes the summary.
type Composer interface {
	Compose(ctx context.Context, in compose.Input) (string, bool)
}

// Result is the aggregate outcome of a run.
type Result struct {
	Query        string                      `json:"query"`
	Steps        []trace.Record              `json:"steps"`
	Organization *directory.OrganizationInfo `json:"organization,omitempty"`
	Profiles     []directory.Profile         `json:"profiles"`
	Insights     []string                    `json:"insights"`
	Summary      string                      `json:"summary"`
	Error        string                      `json:"error,omitempty"`
}

// Failed reports whether the run aborted.
func (r *Result) Failed() bool {
	return r.Error != ""
}

// Options tune a Pipeline.
type Options struct {
	// SyntheticProfiles enables representative profiles after both searches
	// come back empty.
	SyntheticProfiles bool
	// Clock overrides time.Now for step timestamps.
	Clock func() time.Time
}

// Pipeline orchestrates the research stages.
type Pipeline struct {
	interpreter Interpreter
	directory   Directory
	synthesizer Synthesizer
	composer    Composer
	opts        Options
	logger      *zap.Logger
}

// New creates a pipeline from its stages.
func New(in Interpreter, dir Directory, syn Synthesizer, comp Composer, opts Options, logger *zap.Logger) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Pipeline{
		interpreter: in,
		directory:   dir,
		synthesizer: syn,
		composer:    comp,
		opts:        opts,
		logger:      logging.OrNop(logger),
	}
}

// Run executes every stage for query. It never panics: a panicking stage ends
// the run with Error set and the partial trace and collections preserved.
func (p *Pipeline) Run(ctx context.Context, query string) (res *Result) {
	tr := trace.NewWithClock(p.opts.Clock)
	res = &Result{
		Query:    query,
		Profiles: []directory.Profile{},
		Insights: []string{},
	}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprint(r)
			p.logger.Error("research run aborted",
				zap.String("query", query),
				zap.String("error", msg),
				zap.Stack("stack"))
			tr.FailOpen(msg)
			h := tr.Begin(ErrorStep, "An error occurred: "+msg)
			tr.Complete(h, false, map[string]string{"error_message": msg}, nil)
			res.Error = msg
		}
		res.Steps = tr.Serialize()
		observe(res, time.Since(start))
	}()

	p.run(ctx, tr, res)
	return res
}

func (p *Pipeline) run(ctx context.Context, tr *trace.Tracker, res *Result) {
	query := res.Query

	h := tr.Begin(StepInit, "Setting up the research process and preparing directory connections.")
	tr.Complete(h, true, nil, nil)

	h = tr.Begin(StepAnalyze, "Breaking down the query to identify organizations, roles, and technologies.")
	analysis, fromModel := p.interpreter.Interpret(ctx, query)
	confidence := modelConfidence
	if !fromModel {
		confidence = fallbackConfidence
		metrics.StageFallbacks.WithLabelValues("analyze").Inc()
	}
	tr.Complete(h, true, analysis, trace.Confidence(confidence))

	org := analysis.OrganizationName()
	if org != "" {
		h = tr.Begin("Researching organization: "+org, "Gathering information about "+org+" from the directory.")
		info := p.directory.LookupOrganization(ctx, org)
		if info.Source != directory.SourceProvider {
			metrics.StageFallbacks.WithLabelValues("organization").Inc()
		}
		tr.Complete(h, true, info, trace.Confidence(sourceConfidence(info.Source)))
		res.Organization = &info
	}

	term := query
	if len(analysis.Roles) > 0 {
		term = analysis.Roles[0]
	}

	h = tr.Begin(StepSearch, "Finding relevant professionals based on query criteria.")
	profiles := p.directory.SearchPeople(ctx, term, org)
	if len(profiles) > 0 {
		tr.Complete(h, true, map[string]int{"profiles_found": len(profiles)}, nil)
	} else {
		tr.Complete(h, false, map[string]string{"error": "No matching profiles found"}, nil)
		metrics.StageFallbacks.WithLabelValues("search").Inc()

		h = tr.Begin(StepBroaderSearch, "Initial search returned no results. Trying with broader criteria.")
		profiles = p.directory.SearchPeople(ctx, query, "")
		if len(profiles) > 0 {
			tr.Complete(h, true, map[string]int{"profiles_found": len(profiles)}, nil)
		} else {
			tr.Complete(h, false, map[string]string{"error": "No profiles found in broader search"}, nil)
		}
	}

	if len(profiles) == 0 && p.opts.SyntheticProfiles {
		h = tr.Begin(StepSynthetic, "No profiles were found. Generating representative profiles for the requested role.")
		profiles = p.directory.SyntheticProfiles(term, org)
		metrics.StageFallbacks.WithLabelValues("synthetic_profiles").Inc()
		tr.Complete(h, true, map[string]any{"profiles_generated": len(profiles), "representative": true}, trace.Confidence(fallbackConfidence))
	}
	if profiles != nil {
		res.Profiles = profiles
	}

	if len(res.Profiles) > 0 {
		h = tr.Begin(StepInsights, "Examining profiles to identify patterns and insights.")
		insights, ok := p.synthesizer.Synthesize(ctx, res.Profiles, org, analysis.Roles)
		if !ok {
			metrics.StageFallbacks.WithLabelValues("insights").Inc()
		}
		res.Insights = insights
		tr.Complete(h, ok, map[string]int{"insights_generated": len(insights)}, nil)
	}

	h = tr.Begin(StepSummary, "Synthesizing findings into a comprehensive research summary.")
	summary, fromModel := p.composer.Compose(ctx, compose.Input{
		Query:        query,
		Organization: res.Organization,
		Profiles:     res.Profiles,
		Insights:     res.Insights,
	})
	source := "model"
	if !fromModel {
		source = "fallback"
		metrics.StageFallbacks.WithLabelValues("summary").Inc()
	}
	res.Summary = summary
	tr.Complete(h, true, map[string]string{"generated_by": source}, nil)
}

func sourceConfidence(s directory.Source) float64 {
	switch s {
	case directory.SourceProvider:
		return 0.9
	case directory.SourceBuiltin:
		return 0.7
	default:
		return 0.2
	}
}

func observe(res *Result, elapsed time.Duration) {
	outcome := "completed"
	if res.Failed() {
		outcome = "failed"
	}
	metrics.ResearchRuns.WithLabelValues(outcome).Inc()
	metrics.ResearchDuration.Observe(elapsed.Seconds())
	metrics.ProfilesFound.Observe(float64(len(res.Profiles)))
	for _, s := range res.Steps {
		metrics.StepsRecorded.WithLabelValues(string(s.Status)).Inc()
	}
}
