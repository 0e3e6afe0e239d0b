package models

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a queued job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// IsTerminal reports whether no further transitions can happen from s.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Payload is an opaque structured value carried by a job. The queue never
// interprets it; only handlers do.
type Payload map[string]any

// Clone returns a shallow copy of p. A nil payload stays nil.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// Job tracks one unit of async work. The API returns a job_id on submit;
// the client polls GET /api/v1/queue/jobs/{job_id} until status is terminal.
type Job struct {
	ID              uuid.UUID  `json:"id"`
	Type            string     `json:"type"`
	Params          Payload    `json:"params,omitempty"`
	Status          JobStatus  `json:"status"`
	Progress        int        `json:"progress"`
	ProgressMessage string     `json:"progress_message"`
	Result          Payload    `json:"result,omitempty"`
	Error           *string    `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a copy of j that shares no mutable state with it.
func (j *Job) Clone() Job {
	c := *j
	c.Params = j.Params.Clone()
	c.Result = j.Result.Clone()
	if j.Error != nil {
		msg := *j.Error
		c.Error = &msg
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return c
}

// Duration is the wall time between start and completion, or zero if the
// job has not both started and finished.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}

// QueueInfo is an aggregate, eventually-consistent view of the queue.
type QueueInfo struct {
	Pending      int        `json:"pending"`
	Processing   int        `json:"processing"`
	Completed    int        `json:"completed"`
	Failed       int        `json:"failed"`
	Cancelled    int        `json:"cancelled"`
	Total        int        `json:"total"`
	CurrentJobID *uuid.UUID `json:"current_job_id"`
	QueueDepth   int        `json:"queue_depth"`
}
