package tasks

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/orgscout/internal/logging"
	"github.com/TobiSchelling/orgscout/internal/metrics"
)

// ErrQueueClosed is returned by Submit after Close.
var ErrQueueClosed = errors.New("task queue closed")

// RunFunc executes the research query with the given id.
type RunFunc func(ctx context.Context, id string) error

// Completion reports the end of one run.
type Completion struct {
	ID  string
	Err error
}

// QueueOptions configure a Queue.
type QueueOptions struct {
	Workers    int
	OnComplete func(Completion)
}

// Queue runs submitted ids on a fixed pool of workers. Submit never blocks;
// waiting ids are held in memory.
type Queue struct {
	run        RunFunc
	workers    int
	onComplete func(Completion)
	logger     *zap.Logger

	mu      sync.Mutex
	pending []string
	closed  bool
	wake    chan struct{}

	group *errgroup.Group
}

// NewQueue creates a queue. Call Start to launch the workers.
func NewQueue(run RunFunc, opts QueueOptions, logger *zap.Logger) *Queue {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Queue{
		run:        run,
		workers:    opts.Workers,
		onComplete: opts.OnComplete,
		logger:     logging.OrNop(logger),
		wake:       make(chan struct{}, 1),
	}
}

// Start launches the workers. When ctx is cancelled workers stop taking new
// ids, but runs already underway continue until they finish.
func (q *Queue) Start(ctx context.Context) {
	runCtx := context.WithoutCancel(ctx)
	q.group = &errgroup.Group{}
	for i := 0; i < q.workers; i++ {
		q.group.Go(func() error {
			q.work(ctx, runCtx)
			return nil
		})
	}
	q.logger.Info("task queue started", zap.Int("workers", q.workers))
}

// Submit enqueues id.
func (q *Queue) Submit(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	q.pending = append(q.pending, id)
	metrics.QueueDepth.Set(float64(len(q.pending)))
	q.signal()
	return nil
}

// Len returns the number of ids waiting for a worker.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops accepting ids. Workers drain what is already queued, then exit.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.wake)
}

// Wait blocks until every worker has exited.
func (q *Queue) Wait() {
	if q.group != nil {
		_ = q.group.Wait()
	}
}

// signal wakes one idle worker. q.mu must be held.
func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) work(ctx, runCtx context.Context) {
	for {
		id, ok := q.next(ctx)
		if !ok {
			return
		}

		err := q.run(runCtx, id)
		if err != nil {
			q.logger.Error("research run failed", zap.String("query_id", id), zap.Error(err))
		}
		if q.onComplete != nil {
			q.onComplete(Completion{ID: id, Err: err})
		}
	}
}

// next pops the oldest id, waiting when none is queued. It returns false once
// the queue is closed and empty, or ctx is done.
func (q *Queue) next(ctx context.Context) (string, bool) {
	for {
		if ctx.Err() != nil {
			return "", false
		}

		q.mu.Lock()
		if len(q.pending) > 0 {
			id := q.pending[0]
			q.pending = q.pending[1:]
			metrics.QueueDepth.Set(float64(len(q.pending)))
			if len(q.pending) > 0 && !q.closed {
				q.signal()
			}
			q.mu.Unlock()
			return id, true
		}
		if q.closed {
			q.mu.Unlock()
			return "", false
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-ctx.Done():
			return "", false
		}
	}
}
