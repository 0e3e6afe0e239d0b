package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/scribe/internal/mocks"
	"github.com/kiranshivaraju/scribe/internal/queue"
	"github.com/kiranshivaraju/scribe/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// named matches a job snapshot by its "name" param and status. Submit
// notifies before it returns the id, so ids cannot be used here.
func named(name string, status models.JobStatus) gomock.Matcher {
	return gomock.Cond(func(x any) bool {
		job, ok := x.(models.Job)
		return ok && job.Params["name"] == name && job.Status == status
	})
}

func TestObserver_SeesEveryTransition(t *testing.T) {
	ctrl := gomock.NewController(t)
	obs := mocks.NewMockObserver(ctrl)

	gomock.InOrder(
		obs.EXPECT().JobChanged(gomock.Any(), named("a", models.JobStatusPending)),
		obs.EXPECT().JobChanged(gomock.Any(), named("a", models.JobStatusProcessing)),
		obs.EXPECT().JobChanged(gomock.Any(), named("a", models.JobStatusCompleted)),
	)

	q := queue.New(queue.Config{}, queue.WithObservers(obs))
	q.Register("echo", echoHandler())

	id, err := q.Submit(context.Background(), "echo", models.Payload{"name": "a"})
	require.NoError(t, err)

	q.Start(context.Background())
	waitForStatus(t, q, id, models.JobStatusCompleted)
	require.NoError(t, q.Stop(context.Background()))
}

func TestObserver_FailureAndCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	obs := mocks.NewMockObserver(ctrl)

	gomock.InOrder(
		obs.EXPECT().JobChanged(gomock.Any(), named("failing", models.JobStatusPending)),
		obs.EXPECT().JobChanged(gomock.Any(), named("failing", models.JobStatusProcessing)),
		obs.EXPECT().JobChanged(gomock.Any(), gomock.Cond(func(x any) bool {
			job := x.(models.Job)
			return job.Params["name"] == "failing" && job.Status == models.JobStatusFailed &&
				job.Error != nil && *job.Error == "disk full" && job.Result == nil
		})),
	)
	gomock.InOrder(
		obs.EXPECT().JobChanged(gomock.Any(), named("dropped", models.JobStatusPending)),
		obs.EXPECT().JobChanged(gomock.Any(), named("dropped", models.JobStatusCancelled)),
	)

	q := queue.New(queue.Config{}, queue.WithObservers(obs))
	q.Register("boom", queue.HandlerFunc(func(context.Context, models.Payload, uuid.UUID, queue.ProgressReporter) (models.Payload, error) {
		return nil, errors.New("disk full")
	}))

	failed, err := q.Submit(context.Background(), "boom", models.Payload{"name": "failing"})
	require.NoError(t, err)
	cancelled, err := q.Submit(context.Background(), "boom", models.Payload{"name": "dropped"})
	require.NoError(t, err)
	require.True(t, q.Cancel(context.Background(), cancelled))

	q.Start(context.Background())
	waitForStatus(t, q, failed, models.JobStatusFailed)
	require.NoError(t, q.Stop(context.Background()))
}

func TestObserver_LastWriteIsTerminalStatus(t *testing.T) {
	var (
		mu   sync.Mutex
		last = map[uuid.UUID]models.JobStatus{}
	)
	// A slow pending write stands in for a remote cache round trip.
	slow := queue.ObserverFunc(func(_ context.Context, job models.Job) {
		if job.Status == models.JobStatusPending {
			time.Sleep(20 * time.Millisecond)
		}
		mu.Lock()
		last[job.ID] = job.Status
		mu.Unlock()
	})

	q := queue.New(queue.Config{}, queue.WithObservers(slow))
	q.Register("echo", echoHandler())
	q.Start(context.Background())

	id, err := q.Submit(context.Background(), "echo", models.Payload{"msg": "hi"})
	require.NoError(t, err)
	waitForStatus(t, q, id, models.JobStatusCompleted)
	require.NoError(t, q.Stop(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, models.JobStatusCompleted, last[id])
}
