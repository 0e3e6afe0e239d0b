package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/scribe/pkg/models"
)

// StatusMirror publishes job transitions to the cache so other processes can
// poll a job without going through the API. It implements queue.Observer.
//
// Two keys are written per transition: job:<id> holds the bare status and
// job:<id>:snapshot holds the JSON encoded job. Both expire after ttl.
type StatusMirror struct {
	cache Cache
	ttl   time.Duration
}

func NewStatusMirror(c Cache, ttl time.Duration) *StatusMirror {
	return &StatusMirror{cache: c, ttl: ttl}
}

func (m *StatusMirror) JobChanged(ctx context.Context, job models.Job) {
	ctx = context.WithoutCancel(ctx)

	if err := m.cache.SetJobStatus(ctx, job.ID, job.Status, m.ttl); err != nil {
		slog.Warn("mirror job status failed", "job_id", job.ID, "status", job.Status, "error", err)
		return
	}

	snapshot, err := json.Marshal(job)
	if err != nil {
		slog.Warn("encode job snapshot failed", "job_id", job.ID, "error", err)
		return
	}
	if err := m.cache.Set(ctx, JobSnapshotKey(job.ID), snapshot, m.ttl); err != nil {
		slog.Warn("mirror job snapshot failed", "job_id", job.ID, "error", err)
	}
}
