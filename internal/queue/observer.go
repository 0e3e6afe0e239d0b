package queue

import (
	"context"

	"github.com/kiranshivaraju/scribe/pkg/models"
)

// Observer is notified of every lifecycle transition (submit, start,
// finish, cancel) with a snapshot of the job. The pending snapshot is
// delivered before the job is visible to the worker, so one job's snapshots
// arrive in transition order. It is called outside the table lock on the
// goroutine that caused the transition, so implementations should be quick
// and must not call back into the queue's mutating methods.
type Observer interface {
	JobChanged(ctx context.Context, job models.Job)
}

// ObserverFunc adapts an ordinary function to the Observer interface.
type ObserverFunc func(ctx context.Context, job models.Job)

func (f ObserverFunc) JobChanged(ctx context.Context, job models.Job) {
	f(ctx, job)
}
