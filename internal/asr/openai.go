package asr

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/scribe/internal/config"
	"github.com/kiranshivaraju/scribe/pkg/models"
)

// OpenAIProvider implements models.Transcriber using the OpenAI audio
// transcription endpoint. It cannot diarize.
type OpenAIProvider struct {
	cfg    config.OpenAIConfig
	client *http.Client
}

func NewOpenAIProvider(cfg config.OpenAIConfig, timeout time.Duration) *OpenAIProvider {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenAIProvider{cfg: cfg, client: &http.Client{Timeout: timeout}}
}

func (p *OpenAIProvider) Name() string { return "openai" }

type openAIVerboseResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (p *OpenAIProvider) Transcribe(ctx context.Context, req models.TranscriptionRequest) (*models.Transcript, error) {
	if req.Diarize {
		return nil, fmt.Errorf("%w: openai does not label speakers", ErrUnsupported)
	}

	fields := map[string]string{
		"model":           p.cfg.Model,
		"response_format": "verbose_json",
	}
	if req.Language != "" && req.Language != "auto" {
		fields["language"] = req.Language
	}

	var resp openAIVerboseResponse
	err := postAudio(ctx, p.client, uploadRequest{
		url:       p.cfg.BaseURL + "/v1/audio/transcriptions",
		headers:   map[string]string{"Authorization": "Bearer " + p.cfg.APIKey},
		fields:    fields,
		fileField: "file",
		filePath:  req.AudioPath,
	}, &resp)
	if err != nil {
		return nil, err
	}

	segments := make([]models.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, models.Segment{Start: s.Start, End: s.End, Text: strings.TrimSpace(s.Text)})
	}
	return &models.Transcript{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Duration: resp.Duration,
		Segments: segments,
	}, nil
}

var _ models.Transcriber = (*OpenAIProvider)(nil)
