package asr

import (
	"context"

	"github.com/kiranshivaraju/scribe/pkg/models"
)

// MockProvider satisfies models.Transcriber without a backend. It serves
// ASR_PROVIDER=mock and tests.
type MockProvider struct {
	Name_          string
	TranscribeFunc func(ctx context.Context, req models.TranscriptionRequest) (*models.Transcript, error)
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Transcribe(ctx context.Context, req models.TranscriptionRequest) (*models.Transcript, error) {
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, req)
	}
	return &models.Transcript{}, nil
}

// NewMockProvider returns a MockProvider with a fixed two-sentence transcript.
// Diarized requests get the sentences split between two speakers.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock",
		TranscribeFunc: func(_ context.Context, req models.TranscriptionRequest) (*models.Transcript, error) {
			segments := []models.Segment{
				{Start: 0, End: 2.5, Text: "Hello from the mock transcriber."},
				{Start: 2.5, End: 4, Text: "This is a second sentence."},
			}
			if req.Diarize {
				segments[0].Speaker = "SPEAKER_00"
				segments[1].Speaker = "SPEAKER_01"
			}
			lang := req.Language
			if lang == "" || lang == "auto" {
				lang = "en"
			}
			return &models.Transcript{
				Text:     "Hello from the mock transcriber. This is a second sentence.",
				Language: lang,
				Duration: 4,
				Segments: segments,
			}, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		TranscribeFunc: func(context.Context, models.TranscriptionRequest) (*models.Transcript, error) {
			return nil, err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		TranscribeFunc: func(ctx context.Context, _ models.TranscriptionRequest) (*models.Transcript, error) {
			<-ctx.Done()
			return nil, ErrTimeout
		},
	}
}

var _ models.Transcriber = (*MockProvider)(nil)
