// Package tasks executes research runs in the background and records their
// outcome.
package tasks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/TobiSchelling/orgscout/internal/database"
	"github.com/TobiSchelling/orgscout/internal/logging"
	"github.com/TobiSchelling/orgscout/internal/metrics"
	"github.com/TobiSchelling/orgscout/internal/pipeline"
)

// Store is the persistence a Runner needs.
type Store interface {
	GetResearch(ctx context.Context, id string) (*database.ResearchQuery, error)
	MarkInProgress(ctx context.Context, id string) error
	CompleteResearch(ctx context.Context, id string, r database.Results) error
	FailResearch(ctx context.Context, id string, r database.Results) error
}

// Researcher runs the research pipeline for a query.
type Researcher interface {
	Run(ctx context.Context, query string) *pipeline.Result
}

// FailureSummary is the summary stored for a failed run.
func FailureSummary(message string) string {
	return "Research failed: " + message
}

// Runner executes one research query end to end.
type Runner struct {
	store      Store
	researcher Researcher
	logger     *zap.Logger
}

// NewRunner creates a runner.
func NewRunner(store Store, researcher Researcher, logger *zap.Logger) *Runner {
	return &Runner{store: store, researcher: researcher, logger: logging.OrNop(logger)}
}

// Run loads the query with id, runs the pipeline and persists the outcome.
// Once the query is in progress, any error or panic flips it to failed on a
// best-effort basis; the original error is returned.
func (r *Runner) Run(ctx context.Context, id string) (err error) {
	logger := r.logger.With(zap.String("query_id", id))
	started := false

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("research run panicked: %v", p)
			logger.Error("research run panicked", zap.Any("panic", p), zap.Stack("stack"))
		}
		if err == nil {
			return
		}
		metrics.RunnerErrors.Inc()
		if started {
			r.markFailed(ctx, logger, id, err)
		}
	}()

	q, err := r.store.GetResearch(ctx, id)
	if err != nil {
		return fmt.Errorf("loading research %s: %w", id, err)
	}
	if err := r.store.MarkInProgress(ctx, id); err != nil {
		return fmt.Errorf("starting research %s: %w", id, err)
	}
	started = true
	logger.Info("research started", zap.String("query", q.Query))

	res := r.researcher.Run(ctx, q.Query)
	results := database.Results{
		Summary:  res.Summary,
		Steps:    res.Steps,
		Profiles: res.Profiles,
		Insights: res.Insights,
	}

	if res.Failed() {
		results.Summary = FailureSummary(res.Error)
		if err := r.store.FailResearch(ctx, id, results); err != nil {
			return fmt.Errorf("recording failed research %s: %w", id, err)
		}
		logger.Warn("research failed", zap.String("error", res.Error), zap.Int("steps", len(res.Steps)))
		return nil
	}

	if err := r.store.CompleteResearch(ctx, id, results); err != nil {
		return fmt.Errorf("saving research %s: %w", id, err)
	}
	logger.Info("research completed",
		zap.Int("steps", len(res.Steps)),
		zap.Int("profiles", len(res.Profiles)),
		zap.Int("insights", len(res.Insights)))
	return nil
}

func (r *Runner) markFailed(ctx context.Context, logger *zap.Logger, id string, cause error) {
	if err := r.store.FailResearch(ctx, id, database.Results{Summary: FailureSummary(cause.Error())}); err != nil {
		logger.Error("could not mark research failed", zap.Error(err), zap.NamedError("cause", cause))
	}
}
