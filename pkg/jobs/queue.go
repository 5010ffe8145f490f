// Package jobs runs fire-and-forget work on a bounded goroutine pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by Enqueue when the buffer has no room.
var ErrQueueFull = errors.New("queue full")

// Job is one unit of queued work.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job. A returned error schedules a retry.
type Handler func(context.Context, Job) error

// QueueConfig tunes the pool.
type QueueConfig struct {
	Workers      int
	BufferSize   int
	MaxRetries   int
	RetryDelay   time.Duration
	DrainTimeout time.Duration
	Logger       *zap.Logger
}

// Stats is a snapshot of queue counters.
type Stats struct {
	Processed int64
	Failed    int64
	Dropped   int64
}

// Queue dispatches jobs to a fixed number of workers. Enqueue never blocks
// the caller; jobs that do not fit are dropped and counted.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	retries sync.WaitGroup
	mu      sync.RWMutex
	started bool
	stopped bool

	pending   atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewQueue builds a stopped queue.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 64
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  cfg.Logger.With(zap.String("queue", name)),
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start launches the workers. Later calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Stop refuses new jobs, drains what is buffered for up to DrainTimeout,
// then cancels the workers.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started || q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()

	deadline := time.After(q.cfg.DrainTimeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
drain:
	for q.pending.Load() > 0 {
		select {
		case <-deadline:
			q.logger.Warn("queue drain timed out", zap.Int64("pending", q.pending.Load()))
			break drain
		case <-ticker.C:
		}
	}

	q.cancel()
	q.wg.Wait()
	q.retries.Wait()
	q.logger.Info("queue stopped",
		zap.Int64("processed", q.processed.Load()),
		zap.Int64("failed", q.failed.Load()),
		zap.Int64("dropped", q.dropped.Load()),
	)
}

// Enqueue offers job to the buffer without blocking.
func (q *Queue) Enqueue(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if q.stopped {
		return fmt.Errorf("queue %s stopped", q.name)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	q.pending.Add(1)
	select {
	case q.jobs <- job:
		return nil
	default:
		q.pending.Add(-1)
		q.dropped.Add(1)
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueFull)
	}
}

// Stats returns current counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Processed: q.processed.Load(),
		Failed:    q.failed.Load(),
		Dropped:   q.dropped.Load(),
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			if err := q.handler(q.ctx, job); err != nil {
				q.handleFailure(job, err)
				continue
			}
			q.processed.Add(1)
			q.pending.Add(-1)
		}
	}
}

func (q *Queue) handleFailure(job Job, err error) {
	job.Attempt++
	if job.Attempt > q.cfg.MaxRetries {
		q.failed.Add(1)
		q.pending.Add(-1)
		q.logger.Error("job exceeded retries", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(err))
		return
	}
	q.logger.Warn("job failed, retrying",
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempt", job.Attempt),
		zap.Error(err),
	)

	q.retries.Add(1)
	go func(j Job) {
		defer q.retries.Done()
		timer := time.NewTimer(q.cfg.RetryDelay * time.Duration(j.Attempt))
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.failed.Add(1)
			q.pending.Add(-1)
		case <-timer.C:
			select {
			case q.jobs <- j:
			default:
				q.dropped.Add(1)
				q.pending.Add(-1)
				q.logger.Error("failed to requeue job", zap.String("job_id", j.ID), zap.Error(ErrQueueFull))
			}
		}
	}(job)
}
