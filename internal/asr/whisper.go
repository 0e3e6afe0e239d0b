package asr

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kiranshivaraju/scribe/internal/config"
	"github.com/kiranshivaraju/scribe/pkg/models"
)

// WhisperProvider implements models.Transcriber against a WhisperX HTTP
// service. Plain transcription goes to /api/transcribe-advanced and
// diarized transcription to /api/transcribe-with-speakers.
type WhisperProvider struct {
	baseURL   string
	modelSize string
	client    *http.Client
}

func NewWhisperProvider(cfg config.WhisperConfig, timeout time.Duration) *WhisperProvider {
	return &WhisperProvider{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		modelSize: cfg.ModelSize,
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *WhisperProvider) Name() string { return "whisper" }

type whisperAdvancedResponse struct {
	Transcript string           `json:"transcript"`
	Segments   []models.Segment `json:"segments"`
	Language   string           `json:"language"`
	Duration   float64          `json:"duration"`
}

type whisperSpeakersResponse struct {
	Language             string           `json:"language"`
	Transcript           string           `json:"transcript"`
	SegmentsWithSpeakers []models.Segment `json:"segments_with_speakers"`
	Duration             float64          `json:"duration"`
}

func (p *WhisperProvider) Transcribe(ctx context.Context, req models.TranscriptionRequest) (*models.Transcript, error) {
	fields := map[string]string{
		"language":   orDefault(req.Language, "auto"),
		"model_size": orDefault(req.ModelSize, p.modelSize),
	}

	if !req.Diarize {
		var resp whisperAdvancedResponse
		err := postAudio(ctx, p.client, uploadRequest{
			url:       p.baseURL + "/api/transcribe-advanced",
			fields:    fields,
			fileField: "audio",
			filePath:  req.AudioPath,
		}, &resp)
		if err != nil {
			return nil, err
		}
		return &models.Transcript{
			Text:     resp.Transcript,
			Language: resp.Language,
			Duration: resp.Duration,
			Segments: resp.Segments,
		}, nil
	}

	setInt(fields, "num_speakers", req.NumSpeakers)
	setInt(fields, "min_speakers", req.MinSpeakers)
	setInt(fields, "max_speakers", req.MaxSpeakers)

	var resp whisperSpeakersResponse
	err := postAudio(ctx, p.client, uploadRequest{
		url:       p.baseURL + "/api/transcribe-with-speakers",
		fields:    fields,
		fileField: "audio",
		filePath:  req.AudioPath,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &models.Transcript{
		Text:     resp.Transcript,
		Language: resp.Language,
		Duration: resp.Duration,
		Segments: resp.SegmentsWithSpeakers,
	}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func setInt(fields map[string]string, key string, v *int) {
	if v != nil {
		fields[key] = strconv.Itoa(*v)
	}
}

var _ models.Transcriber = (*WhisperProvider)(nil)
