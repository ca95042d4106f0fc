package queue

import (
	"context"
	"sync"
	"time"

	"github.com/dszwed/wp-blueprints/internal/logger"
	"github.com/dszwed/wp-blueprints/internal/models"
)

// StatsEvent is one view or run of a blueprint waiting to be counted
type StatsEvent struct {
	BlueprintId string
	Kind        models.StatisticKind
	At          time.Time
}

// EventQueue is a bounded channel of statistics events. Producers never
// block: a full queue drops the event.
type EventQueue struct {
	events chan *StatsEvent
	closed bool
	mu     sync.Mutex
}

// NewEventQueue creates a new event queue with the specified buffer size
func NewEventQueue(bufferSize int) *EventQueue {
	return &EventQueue{
		events: make(chan *StatsEvent, bufferSize),
	}
}

// Enqueue adds an event to the queue
func (q *EventQueue) Enqueue(event *StatsEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.events <- event:
		logger.WithFields(logger.Fields{
			"blueprint_id": event.BlueprintId,
			"kind":         event.Kind,
		}).Debug("Statistics event enqueued")
		return nil
	default:
		logger.WithFields(logger.Fields{
			"blueprint_id": event.BlueprintId,
			"kind":         event.Kind,
		}).Warn("Statistics queue is full, dropping event")
		return ErrQueueFull
	}
}

// Len returns the number of events waiting
func (q *EventQueue) Len() int {
	return len(q.events)
}

// Close stops accepting events. Queued events are still delivered.
func (q *EventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.events)
}

// Handler processes one event
type Handler func(ctx context.Context, event *StatsEvent) error

// WorkerPool manages multiple workers draining the queue
type WorkerPool struct {
	queue   *EventQueue
	workers int
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(queue *EventQueue, numWorkers int) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool{
		queue:   queue,
		workers: numWorkers,
	}
}

// Start starts all workers. ctx is handed to every handler call.
func (wp *WorkerPool) Start(ctx context.Context, handler Handler) {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i, handler)
	}
}

// worker processes events until the queue is closed and drained
func (wp *WorkerPool) worker(ctx context.Context, id int, handler Handler) {
	defer wp.wg.Done()

	for event := range wp.queue.events {
		if event == nil {
			continue
		}
		if err := handler(ctx, event); err != nil {
			logger.WithFields(logger.Fields{
				"worker":       id,
				"blueprint_id": event.BlueprintId,
				"kind":         event.Kind,
				"error":        err.Error(),
			}).Error("Worker failed to record statistics event")
		}
	}
	logger.Debugf("Statistics worker %d exiting: queue closed", id)
}

// Shutdown closes the queue and waits for the workers to drain it, or for
// ctx to expire, whichever comes first.
func (wp *WorkerPool) Shutdown(ctx context.Context) error {
	wp.queue.Close()

	finished := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
