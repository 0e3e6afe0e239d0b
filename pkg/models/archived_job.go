package models

import (
	"time"

	"github.com/google/uuid"
)

// ArchivedJob is the durable history row written when a job reaches a
// terminal state. It is never read back into the live queue.
type ArchivedJob struct {
	ID           uuid.UUID  `db:"id"            json:"id"`
	Type         string     `db:"type"          json:"type"`
	Status       JobStatus  `db:"status"        json:"status"`
	Params       Payload    `db:"params"        json:"params,omitempty"`
	Result       Payload    `db:"result"        json:"result,omitempty"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	StartedAt    *time.Time `db:"started_at"    json:"started_at,omitempty"`
	CompletedAt  *time.Time `db:"completed_at"  json:"completed_at,omitempty"`
	ArchivedAt   time.Time  `db:"archived_at"   json:"archived_at"`
}

// ArchivedFromJob builds the archive row for a terminal job snapshot.
func ArchivedFromJob(j Job, now time.Time) ArchivedJob {
	return ArchivedJob{
		ID:           j.ID,
		Type:         j.Type,
		Status:       j.Status,
		Params:       j.Params,
		Result:       j.Result,
		ErrorMessage: j.Error,
		CreatedAt:    j.CreatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
		ArchivedAt:   now,
	}
}
