package queue

import (
	"time"

	"github.com/google/uuid"
)

// sweep evicts terminal jobs that finished more than ttl ago, but only once
// the table has grown past maxJobs. Pending and processing jobs are never
// touched regardless of age.
func (t *table) sweep(maxJobs int, ttl time.Duration, now time.Time) []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.jobs) <= maxJobs {
		return nil
	}

	cutoff := now.Add(-ttl)
	var evicted []uuid.UUID
	for id, job := range t.jobs {
		if !job.Status.IsTerminal() || job.CompletedAt == nil {
			continue
		}
		if job.CompletedAt.Before(cutoff) {
			delete(t.jobs, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}
