package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/scribe/pkg/models"
)

// Archiver copies terminal jobs into archived_jobs so their history outlives
// the in-memory retention window. It implements queue.Observer.
type Archiver struct {
	store   Store
	timeout time.Duration
	now     func() time.Time
}

// NewArchiver creates an Archiver writing to st. Each insert gets at most
// timeout; zero means no deadline beyond the caller's context.
func NewArchiver(st Store, timeout time.Duration) *Archiver {
	return &Archiver{store: st, timeout: timeout, now: time.Now}
}

// JobChanged archives terminal snapshots and ignores every other transition.
// Failures are logged; the queue never sees them.
func (a *Archiver) JobChanged(ctx context.Context, job models.Job) {
	if !job.Status.IsTerminal() {
		return
	}

	ctx = context.WithoutCancel(ctx)
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	row := models.ArchivedFromJob(job, a.now().UTC())
	if err := a.store.ArchiveJob(ctx, &row); err != nil {
		slog.Error("archive job failed", "job_id", job.ID, "status", job.Status, "error", err)
	}
}
