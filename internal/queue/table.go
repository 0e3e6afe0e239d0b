package queue

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/scribe/pkg/models"
)

// table owns every job record. All reads and writes go through its methods,
// which hold mu only for the duration of the map access; callers always get
// copies back.
type table struct {
	mu      sync.RWMutex
	jobs    map[uuid.UUID]*models.Job
	current uuid.UUID
}

func newTable() *table {
	return &table{jobs: make(map[uuid.UUID]*models.Job)}
}

func (t *table) insert(job *models.Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[job.ID] = job
}

func (t *table) get(id uuid.UUID) (models.Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[id]
	if !ok {
		return models.Job{}, false
	}
	return job.Clone(), true
}

func (t *table) size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.jobs)
}

// cancel moves a pending job to cancelled. It returns the updated snapshot
// and false if the job is unknown or has already left pending.
func (t *table) cancel(id uuid.UUID, now time.Time) (models.Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok || job.Status != models.JobStatusPending {
		return models.Job{}, false
	}
	job.Status = models.JobStatusCancelled
	job.CompletedAt = &now
	return job.Clone(), true
}

// begin checks a dequeued job out for execution. Jobs that were evicted or
// cancelled while waiting are reported as not runnable and left untouched.
func (t *table) begin(id uuid.UUID, now time.Time) (models.Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok || job.Status != models.JobStatusPending {
		return models.Job{}, false
	}
	job.Status = models.JobStatusProcessing
	job.StartedAt = &now
	t.current = id
	return job.Clone(), true
}

// progress records a handler's progress update. Updates for jobs that are
// not processing are dropped, and progress never moves backwards.
func (t *table) progress(id uuid.UUID, progress int, message string) bool {
	progress = min(max(progress, 0), 100)

	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok || job.Status != models.JobStatusProcessing {
		return false
	}
	job.Progress = max(job.Progress, progress)
	job.ProgressMessage = message
	return true
}

// finish records the outcome of a processing job and releases the
// in-flight slot.
func (t *table) finish(id uuid.UUID, result models.Payload, runErr error, now time.Time) (models.Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == id {
		t.current = uuid.Nil
	}
	job, ok := t.jobs[id]
	if !ok || job.Status != models.JobStatusProcessing {
		return models.Job{}, false
	}
	if runErr != nil {
		msg := runErr.Error()
		job.Status = models.JobStatusFailed
		job.Error = &msg
	} else {
		job.Status = models.JobStatusCompleted
		job.Result = result
		job.Progress = 100
	}
	job.CompletedAt = &now
	return job.Clone(), true
}

// info counts jobs per status. depth is filled in by the caller.
func (t *table) info() models.QueueInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var info models.QueueInfo
	for _, job := range t.jobs {
		switch job.Status {
		case models.JobStatusPending:
			info.Pending++
		case models.JobStatusProcessing:
			info.Processing++
		case models.JobStatusCompleted:
			info.Completed++
		case models.JobStatusFailed:
			info.Failed++
		case models.JobStatusCancelled:
			info.Cancelled++
		}
	}
	info.Total = len(t.jobs)
	if t.current != uuid.Nil {
		id := t.current
		info.CurrentJobID = &id
	}
	return info
}
