package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/scribe/pkg/models"
)

// Start launches the worker goroutine. Calling Start on a running queue is
// a no-op. Cancelling ctx stops the worker after its current job, the same
// as Stop; the job itself keeps running with ctx's values but not its
// cancellation.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.running = true
	q.stopCh = make(chan struct{})
	q.doneCh = make(chan struct{})

	go q.run(context.WithoutCancel(ctx), q.stopCh, q.doneCh)
	go func(stop, done chan struct{}) {
		select {
		case <-ctx.Done():
			q.signalStop(stop)
		case <-done:
		}
	}(q.stopCh, q.doneCh)

	q.logger.Info("queue worker started", "max_jobs", q.cfg.MaxJobs, "job_ttl", q.cfg.JobTTL)
}

// Stop asks the worker to exit once its current job is done and waits for
// it until ctx expires. Stopping a queue that is not running is a no-op.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	stop, done := q.stopCh, q.doneCh
	q.mu.Unlock()

	q.signalStop(stop)

	select {
	case <-done:
		q.logger.Info("queue worker stopped")
		return nil
	case <-ctx.Done():
		q.logger.Warn("queue worker did not stop in time", "current_job_id", q.Info().CurrentJobID)
		return fmt.Errorf("stop queue worker: %w", ctx.Err())
	}
}

// Seal rejects further submissions without stopping the worker. Jobs
// already queued keep running.
func (q *Queue) Seal() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// Close rejects further submissions and stops the worker.
func (q *Queue) Close(ctx context.Context) error {
	q.Seal()
	return q.Stop(ctx)
}

// Running reports whether the worker goroutine is active.
func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

func (q *Queue) signalStop(stop chan struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopCh != stop {
		return
	}
	select {
	case <-stop:
	default:
		close(stop)
	}
}

func (q *Queue) run(ctx context.Context, stop, done chan struct{}) {
	defer func() {
		q.mu.Lock()
		if q.doneCh == done {
			q.running = false
		}
		q.mu.Unlock()
		close(done)
	}()

	for {
		select {
		case <-stop:
			return
		default:
		}

		id, ok := q.pending.pop(stop)
		if !ok {
			return
		}
		q.process(ctx, id)
	}
}

// process runs one dequeued job through the state machine. Any failure is
// recorded on the job; nothing here can stop the loop.
func (q *Queue) process(ctx context.Context, id uuid.UUID) {
	job, ok := q.jobs.begin(id, q.now().UTC())
	if !ok {
		q.logger.Debug("skipping job that is no longer pending", "job_id", id)
		return
	}
	q.logger.Info("processing job", "job_id", id, "job_type", job.Type)
	q.notify(ctx, job)

	var (
		result models.Payload
		err    error
	)
	if h, found := q.registry.Get(job.Type); found {
		result, err = q.invoke(ctx, h, job)
	} else {
		err = fmt.Errorf("%w for job type %q", ErrNoHandler, job.Type)
	}

	finished, ok := q.jobs.finish(id, result, err, q.now().UTC())
	if !ok {
		return
	}
	if err != nil {
		q.logger.Error("job failed", "job_id", id, "job_type", job.Type, "error", err)
	} else {
		q.logger.Info("job completed", "job_id", id, "job_type", job.Type,
			"duration_ms", finished.Duration().Milliseconds())
	}
	q.notify(ctx, finished)
}

// invoke calls the handler with the table lock released. A panic inside
// the handler fails only this job.
func (q *Queue) invoke(ctx context.Context, h Handler, job models.Job) (result models.Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if q.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.cfg.JobTimeout)
		defer cancel()
	}
	return h.Handle(ctx, job.Params, job.ID, q)
}
