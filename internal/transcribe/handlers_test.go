package transcribe_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/scribe/internal/asr"
	"github.com/kiranshivaraju/scribe/internal/queue"
	"github.com/kiranshivaraju/scribe/internal/transcribe"
	"github.com/kiranshivaraju/scribe/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type report struct {
	progress int
	message  string
}

// recorder is a ProgressReporter that keeps every report.
type recorder struct {
	mu      sync.Mutex
	reports []report
}

func (r *recorder) Report(_ uuid.UUID, progress int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report{progress, message})
}

// handlerMap captures what Register installs.
type handlerMap map[string]queue.Handler

func (m handlerMap) Register(jobType string, h queue.Handler) { m[jobType] = h }

func registered(t *testing.T, provider models.Transcriber, uploads *transcribe.Uploads) handlerMap {
	t.Helper()
	m := handlerMap{}
	transcribe.Register(m, provider, uploads)
	require.Contains(t, m, transcribe.TypeTranscribe)
	require.Contains(t, m, transcribe.TypeFullPipeline)
	return m
}

func stage(t *testing.T, u *transcribe.Uploads) string {
	t.Helper()
	path, err := u.Save("clip.wav", strings.NewReader("fake audio"))
	require.NoError(t, err)
	return path
}

func TestTranscribeHandler_Success(t *testing.T) {
	u := newUploads(t, 1<<20)
	var got models.TranscriptionRequest
	provider := asr.NewMockProvider()
	inner := provider.TranscribeFunc
	provider.TranscribeFunc = func(ctx context.Context, req models.TranscriptionRequest) (*models.Transcript, error) {
		got = req
		return inner(ctx, req)
	}
	h := registered(t, provider, u)[transcribe.TypeTranscribe]

	path := stage(t, u)
	rec := &recorder{}
	result, err := h.Handle(context.Background(),
		transcribe.Params{AudioPath: path, Language: "en", ModelSize: "small"}.Payload(),
		uuid.New(), rec)
	require.NoError(t, err)

	assert.Equal(t, path, got.AudioPath)
	assert.Equal(t, "small", got.ModelSize)
	assert.False(t, got.Diarize)

	assert.Equal(t, "Hello from the mock transcriber. This is a second sentence.", result["transcript"])
	assert.Equal(t, "en", result["language"])
	assert.Equal(t, float64(4), result["duration"])
	assert.Len(t, result["segments"], 2)

	assert.Equal(t, []report{
		{10, "Loading audio..."},
		{20, "Loading model..."},
		{90, "Finalizing..."},
	}, rec.reports)

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist, "staged audio must be removed")
}

func TestTranscribeHandler_ProviderErrorStillRemovesAudio(t *testing.T) {
	u := newUploads(t, 1<<20)
	h := registered(t, asr.NewFailingProvider(asr.ErrProviderUnavailable), u)[transcribe.TypeTranscribe]

	path := stage(t, u)
	_, err := h.Handle(context.Background(), models.Payload{"audio_path": path}, uuid.New(), &recorder{})
	require.Error(t, err)
	assert.ErrorIs(t, err, asr.ErrProviderUnavailable)

	_, statErr := os.Stat(path)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestTranscribeHandler_InvalidParamsStillRemovesAudio(t *testing.T) {
	u := newUploads(t, 1<<20)
	h := registered(t, asr.NewMockProvider(), u)[transcribe.TypeTranscribe]

	path := stage(t, u)
	_, err := h.Handle(context.Background(),
		models.Payload{"audio_path": path, "num_speakers": "lots"}, uuid.New(), &recorder{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid params")

	_, statErr := os.Stat(path)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestTranscribeHandler_RejectsForeignPath(t *testing.T) {
	u := newUploads(t, 1<<20)
	h := registered(t, asr.NewMockProvider(), u)[transcribe.TypeTranscribe]

	foreign := t.TempDir() + "/outside.wav"
	require.NoError(t, os.WriteFile(foreign, []byte("x"), 0o600))

	_, err := h.Handle(context.Background(), models.Payload{"audio_path": foreign}, uuid.New(), &recorder{})
	assert.ErrorIs(t, err, transcribe.ErrForeignPath)

	_, statErr := os.Stat(foreign)
	assert.NoError(t, statErr, "files outside the staging dir are never deleted")
}

func TestTranscribeHandler_MissingAudio(t *testing.T) {
	u := newUploads(t, 1<<20)
	h := registered(t, asr.NewMockProvider(), u)[transcribe.TypeTranscribe]

	path := stage(t, u)
	u.Remove(path)

	_, err := h.Handle(context.Background(), models.Payload{"audio_path": path}, uuid.New(), &recorder{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFullPipelineHandler_Success(t *testing.T) {
	u := newUploads(t, 1<<20)
	var got models.TranscriptionRequest
	provider := &asr.MockProvider{
		Name_: "scripted",
		TranscribeFunc: func(_ context.Context, req models.TranscriptionRequest) (*models.Transcript, error) {
			got = req
			return &models.Transcript{
				Text:     "a b c",
				Language: "ml",
				Duration: 10,
				Segments: []models.Segment{
					{Start: 0, End: 2, Text: "a", Speaker: "SPEAKER_00"},
					{Start: 2, End: 8, Text: "b", Speaker: "SPEAKER_01"},
					{Start: 8, End: 10, Text: "c", Speaker: "SPEAKER_00"},
				},
			}, nil
		},
	}
	h := registered(t, provider, u)[transcribe.TypeFullPipeline]

	two := 2
	path := stage(t, u)
	rec := &recorder{}
	result, err := h.Handle(context.Background(),
		transcribe.Params{AudioPath: path, Language: "ml", NumSpeakers: &two}.Payload(),
		uuid.New(), rec)
	require.NoError(t, err)

	assert.True(t, got.Diarize)
	require.NotNil(t, got.NumSpeakers)
	assert.Equal(t, 2, *got.NumSpeakers)

	assert.Equal(t, "ml", result["language"])
	assert.Equal(t, 2, result["num_speakers"])
	assert.Equal(t, "a b c", result["transcript"])
	assert.Len(t, result["segments_with_speakers"], 3)

	summary, ok := result["speakers_summary"].([]models.SpeakerSummary)
	require.True(t, ok)
	require.Len(t, summary, 2)
	assert.Equal(t, "SPEAKER_01", summary[0].ID)
	assert.Equal(t, "Speaker 2", summary[0].Label)
	assert.InDelta(t, 6, summary[0].TotalTime, 0.001)
	assert.Equal(t, 2, summary[1].Turns)

	require.NotEmpty(t, rec.reports)
	assert.Equal(t, report{5, "Loading audio..."}, rec.reports[0])
	assert.Equal(t, report{90, "Finalizing..."}, rec.reports[len(rec.reports)-1])

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFullPipelineHandler_UnsupportedProvider(t *testing.T) {
	u := newUploads(t, 1<<20)
	provider := asr.NewFailingProvider(fmt.Errorf("%w: no diarization", asr.ErrUnsupported))
	h := registered(t, provider, u)[transcribe.TypeFullPipeline]

	_, err := h.Handle(context.Background(), models.Payload{"audio_path": stage(t, u)}, uuid.New(), &recorder{})
	assert.ErrorIs(t, err, asr.ErrUnsupported)
}

func TestSummarizeSpeakers(t *testing.T) {
	summary := transcribe.SummarizeSpeakers([]models.Segment{
		{Start: 0, End: 1, Speaker: "SPEAKER_00"},
		{Start: 1, End: 2},
		{Start: 2, End: 5, Speaker: "SPEAKER_00"},
	})

	require.Len(t, summary, 2)
	assert.Equal(t, models.SpeakerSummary{ID: "SPEAKER_00", Label: "Speaker 1", TotalTime: 4, Turns: 2}, summary[0])
	assert.Equal(t, models.SpeakerSummary{ID: "UNKNOWN", Label: "Speaker 2", TotalTime: 1, Turns: 1}, summary[1])

	assert.Empty(t, transcribe.SummarizeSpeakers(nil))
}

// End to end through the queue: submit, run, read the result back.
func TestRegister_RunsThroughQueue(t *testing.T) {
	u := newUploads(t, 1<<20)
	q := queue.New(queue.Config{})
	transcribe.Register(q, asr.NewMockProvider(), u)
	q.Start(context.Background())
	t.Cleanup(func() { _ = q.Stop(context.Background()) })

	path := stage(t, u)
	id, err := q.Submit(context.Background(), transcribe.TypeFullPipeline, transcribe.Params{AudioPath: path}.Payload())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		job, err := q.Status(id)
		return err == nil && job.Status.IsTerminal()
	}, 2*time.Second, 5*time.Millisecond)

	job, err := q.Status(id)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusCompleted, job.Status, "error: %v", job.Error)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, 2, job.Result["num_speakers"])
}

func TestCleanupObserver_RemovesAudioOfCancelledJob(t *testing.T) {
	u := newUploads(t, 1<<20)
	q := queue.New(queue.Config{}, queue.WithObservers(transcribe.CleanupObserver(u)))
	transcribe.Register(q, asr.NewMockProvider(), u)

	path := stage(t, u)
	id, err := q.Submit(context.Background(), transcribe.TypeTranscribe, transcribe.Params{AudioPath: path}.Payload())
	require.NoError(t, err)
	require.True(t, q.Cancel(context.Background(), id))

	q.Start(context.Background())
	require.NoError(t, q.Stop(context.Background()))

	job, err := q.Status(id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, job.Status)
	assert.NoFileExists(t, path)
}

func TestCleanupObserver_IgnoresOtherTransitions(t *testing.T) {
	u := newUploads(t, 1<<20)
	obs := transcribe.CleanupObserver(u)
	path := stage(t, u)
	params := transcribe.Params{AudioPath: path}.Payload()

	for _, status := range []models.JobStatus{models.JobStatusPending, models.JobStatusProcessing} {
		obs.JobChanged(context.Background(), models.Job{ID: uuid.New(), Status: status, Params: params})
	}
	assert.FileExists(t, path)

	outside := filepath.Join(t.TempDir(), "keep.wav")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))
	obs.JobChanged(context.Background(), models.Job{
		ID:     uuid.New(),
		Status: models.JobStatusCancelled,
		Params: models.Payload{"audio_path": outside},
	})
	assert.FileExists(t, outside)
}
