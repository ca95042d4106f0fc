package services

import (
	"context"
	"errors"
	"time"

	"github.com/dszwed/wp-blueprints/internal/logger"
	"github.com/dszwed/wp-blueprints/internal/metrics"
	"github.com/dszwed/wp-blueprints/internal/models"
	"github.com/dszwed/wp-blueprints/internal/queue"
	"github.com/dszwed/wp-blueprints/internal/repository"
)

// StatisticsRecorder counts views and runs off the request path. Events go
// through a bounded queue and are applied by a worker pool.
type StatisticsRecorder struct {
	repo    repository.StatisticsRepository
	queue   *queue.EventQueue
	pool    *queue.WorkerPool
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewStatisticsRecorder creates a recorder; call Start before recording
func NewStatisticsRecorder(repo repository.StatisticsRepository, queueSize, workers int, m *metrics.Metrics) *StatisticsRecorder {
	q := queue.NewEventQueue(queueSize)
	return &StatisticsRecorder{
		repo:    repo,
		queue:   q,
		pool:    queue.NewWorkerPool(q, workers),
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Start launches the workers
func (r *StatisticsRecorder) Start(ctx context.Context) {
	r.pool.Start(ctx, r.apply)
}

// Shutdown stops accepting events and waits for queued ones to be applied
func (r *StatisticsRecorder) Shutdown(ctx context.Context) error {
	return r.pool.Shutdown(ctx)
}

// Record queues one event. It never blocks: when the queue is full or closed
// the event is dropped and logged.
func (r *StatisticsRecorder) Record(blueprintId string, kind models.StatisticKind) {
	err := r.queue.Enqueue(&queue.StatsEvent{
		BlueprintId: blueprintId,
		Kind:        kind,
		At:          r.now(),
	})
	if err != nil {
		r.metrics.RecordStatsEvent(string(kind), metrics.OutcomeDropped)
		if !errors.Is(err, queue.ErrQueueFull) {
			logger.ForBlueprint(blueprintId).WithError(err).Warn("Statistics event dropped")
		}
	}
}

// Get returns the current counters of a blueprint
func (r *StatisticsRecorder) Get(ctx context.Context, blueprintId string) (*models.BlueprintStatistics, error) {
	return r.repo.Get(ctx, blueprintId)
}

func (r *StatisticsRecorder) apply(ctx context.Context, event *queue.StatsEvent) error {
	err := r.repo.Record(ctx, event.BlueprintId, event.Kind, event.At)
	if err != nil {
		r.metrics.RecordStatsEvent(string(event.Kind), metrics.OutcomeError)
		return err
	}
	r.metrics.RecordStatsEvent(string(event.Kind), metrics.OutcomeSuccess)
	return nil
}
