// Package queue runs long, single-resource jobs one at a time in strict
// submission order. Callers submit work, poll status and progress, fetch
// results, and cancel jobs that have not started yet.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/scribe/pkg/models"
)

const (
	defaultMaxJobs = 100
	defaultJobTTL  = time.Hour
)

// Config bounds the job history and handler runtime.
type Config struct {
	// MaxJobs is the table size above which finished jobs become eligible
	// for eviction.
	MaxJobs int
	// JobTTL is how long a finished job is kept once MaxJobs is exceeded.
	JobTTL time.Duration
	// JobTimeout bounds each handler's context. Zero means no limit.
	JobTimeout time.Duration
}

// Option customizes a Queue.
type Option func(*Queue)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// WithObservers registers observers for lifecycle transitions.
func WithObservers(obs ...Observer) Option {
	return func(q *Queue) { q.observers = append(q.observers, obs...) }
}

// WithRegistry shares an existing handler registry.
func WithRegistry(r *Registry) Option {
	return func(q *Queue) { q.registry = r }
}

// Queue is a process-local FIFO job queue with exactly one worker.
type Queue struct {
	cfg       Config
	registry  *Registry
	jobs      *table
	pending   *fifo
	observers []Observer
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	running bool
	closed  bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a stopped queue. Register handlers, then call Start.
func New(cfg Config, opts ...Option) *Queue {
	if cfg.MaxJobs <= 0 {
		cfg.MaxJobs = defaultMaxJobs
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = defaultJobTTL
	}
	q := &Queue{
		cfg:     cfg,
		jobs:    newTable(),
		pending: newFIFO(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.registry == nil {
		q.registry = NewRegistry()
	}
	return q
}

// Register associates a job type with its handler.
func (q *Queue) Register(jobType string, h Handler) {
	q.registry.Register(jobType, h)
	q.logger.Info("registered job handler", "job_type", jobType)
}

// Registry returns the handler registry backing the queue.
func (q *Queue) Registry() *Registry {
	return q.registry
}

// Submit records a new pending job and queues it for execution. It returns
// immediately; the job type is only resolved when the worker reaches it.
func (q *Queue) Submit(ctx context.Context, jobType string, params models.Payload) (uuid.UUID, error) {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return uuid.Nil, ErrQueueClosed
	}

	job := &models.Job{
		ID:        uuid.New(),
		Type:      jobType,
		Params:    params.Clone(),
		Status:    models.JobStatusPending,
		CreatedAt: q.now().UTC(),
	}

	// Observers see pending before the worker or Cancel can reach the job.
	q.notify(ctx, job.Clone())

	q.jobs.insert(job)
	q.pending.push(job.ID)

	q.sweep()

	q.logger.Info("job submitted", "job_id", job.ID, "job_type", jobType)
	return job.ID, nil
}

// Status returns a consistent snapshot of the job.
func (q *Queue) Status(id uuid.UUID) (models.Job, error) {
	job, ok := q.jobs.get(id)
	if !ok {
		return models.Job{}, ErrNotFound
	}
	return job, nil
}

// Result returns the job's result payload. It fails with ErrNotCompleted
// for any job that is not in the completed state.
func (q *Queue) Result(id uuid.UUID) (models.Payload, error) {
	job, ok := q.jobs.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if job.Status != models.JobStatusCompleted {
		return nil, fmt.Errorf("%w: status is %s", ErrNotCompleted, job.Status)
	}
	return job.Result, nil
}

// Cancel marks a pending job as cancelled so the worker skips it. Jobs
// that are unknown, already running, or finished cannot be cancelled.
func (q *Queue) Cancel(ctx context.Context, id uuid.UUID) bool {
	job, ok := q.jobs.cancel(id, q.now().UTC())
	if !ok {
		return false
	}
	q.logger.Info("job cancelled", "job_id", id)
	q.notify(ctx, job)
	return true
}

// Info returns per-status counts, the in-flight job and the number of ids
// still waiting in the submission queue.
func (q *Queue) Info() models.QueueInfo {
	info := q.jobs.info()
	info.QueueDepth = q.pending.len()
	return info
}

// Report implements ProgressReporter. Progress is clamped to [0, 100] and
// only recorded while the job is processing.
func (q *Queue) Report(jobID uuid.UUID, progress int, message string) {
	if !q.jobs.progress(jobID, progress, message) {
		q.logger.Debug("progress update dropped", "job_id", jobID, "progress", progress)
	}
}

func (q *Queue) sweep() {
	if q.jobs.size() <= q.cfg.MaxJobs {
		return
	}
	evicted := q.jobs.sweep(q.cfg.MaxJobs, q.cfg.JobTTL, q.now().UTC())
	if len(evicted) > 0 {
		q.logger.Info("evicted expired jobs", "count", len(evicted))
	}
}

func (q *Queue) notify(ctx context.Context, job models.Job) {
	for _, o := range q.observers {
		o.JobChanged(ctx, job.Clone())
	}
}

var _ ProgressReporter = (*Queue)(nil)
