package tasks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/TobiSchelling/orgscout/internal/database"
	"github.com/TobiSchelling/orgscout/internal/logging"
	"github.com/TobiSchelling/orgscout/internal/metrics"
)

// Creator records new research queries.
type Creator interface {
	CreateResearch(ctx context.Context, query string) (*database.ResearchQuery, error)
}

// Submitter accepts ids for background execution.
type Submitter interface {
	Submit(id string) error
}

// Service turns submitted text into a pending query and schedules its run.
type Service struct {
	store  Creator
	queue  Submitter
	logger *zap.Logger
}

// NewService creates a submission service.
func NewService(store Creator, queue Submitter, logger *zap.Logger) *Service {
	return &Service{store: store, queue: queue, logger: logging.OrNop(logger)}
}

// Submit creates a pending record for query and enqueues it. It returns as
// soon as the record exists; the run happens in the background.
func (s *Service) Submit(ctx context.Context, query string) (*database.ResearchQuery, error) {
	q, err := s.store.CreateResearch(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("creating research: %w", err)
	}
	if err := s.queue.Submit(q.ID); err != nil {
		return nil, fmt.Errorf("scheduling research %s: %w", q.ID, err)
	}
	metrics.ResearchSubmitted.Inc()
	s.logger.Info("research submitted", zap.String("query_id", q.ID))
	return q, nil
}
