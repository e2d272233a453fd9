// Package jobs runs async analysis submissions on an in-process worker
// pool with pluggable persistence.
package jobs

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/insight-gateway/backend/internal/observability"
	"github.com/upb/insight-gateway/backend/models"
	"github.com/upb/insight-gateway/backend/services"
	"github.com/upb/insight-gateway/backend/services/analysis"
)

// Analyzer is the synchronous analyze operation jobs run.
type Analyzer interface {
	Analyze(ctx context.Context, requestID string, req *analysis.Request) (*analysis.Response, error)
}

// Notifier delivers a terminal job state to its webhook, if any.
type Notifier interface {
	Deliver(ctx context.Context, job *models.Job)
}

// Queue accepts jobs and processes them on a fixed worker pool.
type Queue struct {
	store    Store
	analyzer Analyzer
	notifier Notifier
	logger   *zap.Logger
	metrics  *observability.Metrics

	workers int
	pending chan string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewQueue creates a queue with the given worker count and backlog.
func NewQueue(store Store, analyzer Analyzer, notifier Notifier, workers, backlog int, logger *zap.Logger, metrics *observability.Metrics) *Queue {
	if workers <= 0 {
		workers = 2
	}
	if backlog <= 0 {
		backlog = 64
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		store:    store,
		analyzer: analyzer,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		workers:  workers,
		pending:  make(chan string, backlog),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the worker pool.
func (q *Queue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.logger.Info("job queue started", zap.Int("workers", q.workers))
}

// Stop drains the backlog and waits for in-flight jobs to finish.
func (q *Queue) Stop() {
	close(q.pending)
	q.wg.Wait()
	q.cancel()
	q.logger.Info("job queue stopped")
}

// Submit persists a new pending job and enqueues it. A full backlog
// rejects the submission with services.ErrQueueFull.
func (q *Queue) Submit(ctx context.Context, req *analysis.Request, webhookURL string) (*models.Job, error) {
	job := models.NewJob(uuid.NewString(), req, webhookURL)

	if err := q.store.Save(ctx, job); err != nil {
		return nil, services.WrapInternal("failed to persist job", err)
	}

	select {
	case q.pending <- job.ID:
	default:
		job.MarkAsFailed("job queue is full")
		_ = q.store.Save(ctx, job)
		return nil, services.ErrQueueFull
	}

	q.logger.Info("job submitted",
		zap.String("job_id", job.ID),
		zap.Bool("webhook", webhookURL != ""))
	return job, nil
}

// Get returns the current state of a job.
func (q *Queue) Get(ctx context.Context, id string) (*models.Job, error) {
	return q.store.Get(ctx, id)
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for id := range q.pending {
		q.process(id)
	}
}

func (q *Queue) process(id string) {
	job, err := q.store.Get(q.ctx, id)
	if err != nil {
		q.logger.Error("failed to load queued job",
			zap.String("job_id", id),
			zap.Error(err))
		return
	}

	job.MarkAsProcessing()
	if err := q.store.Save(q.ctx, job); err != nil {
		q.logger.Error("failed to persist job state",
			zap.String("job_id", id),
			zap.Error(err))
	}

	result, err := q.analyzer.Analyze(q.ctx, job.ID, job.Request)
	if err != nil {
		job.MarkAsFailed(err.Error())
		q.metrics.JobsProcessed.WithLabelValues(string(models.JobStatusFailed)).Inc()
		q.logger.Error("job failed",
			zap.String("job_id", id),
			zap.Error(err))
	} else {
		job.MarkAsCompleted(result)
		q.metrics.JobsProcessed.WithLabelValues(string(models.JobStatusCompleted)).Inc()
		q.logger.Info("job completed", zap.String("job_id", id))
	}

	if err := q.store.Save(q.ctx, job); err != nil {
		q.logger.Error("failed to persist job result",
			zap.String("job_id", id),
			zap.Error(err))
	}

	if job.WebhookURL != "" && q.notifier != nil {
		q.notifier.Deliver(q.ctx, job)
	}
}
