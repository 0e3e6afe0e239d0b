package transcribe

import (
	"fmt"
	"strconv"

	"github.com/kiranshivaraju/scribe/pkg/models"
)

// Job types served by this package.
const (
	TypeTranscribe   = "transcribe"
	TypeFullPipeline = "full_pipeline"
)

// Params is the typed view of a transcription job payload.
type Params struct {
	AudioPath   string
	Language    string
	ModelSize   string
	NumSpeakers *int
	MinSpeakers *int
	MaxSpeakers *int
}

// Payload encodes p for submission. Unset speaker hints are omitted.
func (p Params) Payload() models.Payload {
	out := models.Payload{
		"audio_path": p.AudioPath,
		"language":   p.Language,
		"model_size": p.ModelSize,
	}
	if p.NumSpeakers != nil {
		out["num_speakers"] = *p.NumSpeakers
	}
	if p.MinSpeakers != nil {
		out["min_speakers"] = *p.MinSpeakers
	}
	if p.MaxSpeakers != nil {
		out["max_speakers"] = *p.MaxSpeakers
	}
	return out
}

// ParamsFromPayload decodes a job payload. Speaker hints may arrive as Go
// ints, JSON numbers or numeric strings.
func ParamsFromPayload(payload models.Payload) (Params, error) {
	var p Params
	var err error

	if p.AudioPath, err = stringField(payload, "audio_path"); err != nil {
		return Params{}, err
	}
	if p.AudioPath == "" {
		return Params{}, fmt.Errorf("audio_path is required")
	}
	if p.Language, err = stringField(payload, "language"); err != nil {
		return Params{}, err
	}
	if p.Language == "" {
		p.Language = "auto"
	}
	if p.ModelSize, err = stringField(payload, "model_size"); err != nil {
		return Params{}, err
	}

	for key, dst := range map[string]**int{
		"num_speakers": &p.NumSpeakers,
		"min_speakers": &p.MinSpeakers,
		"max_speakers": &p.MaxSpeakers,
	} {
		if *dst, err = intField(payload, key); err != nil {
			return Params{}, err
		}
	}

	if p.MinSpeakers != nil && p.MaxSpeakers != nil && *p.MinSpeakers > *p.MaxSpeakers {
		return Params{}, fmt.Errorf("min_speakers (%d) exceeds max_speakers (%d)", *p.MinSpeakers, *p.MaxSpeakers)
	}
	return p, nil
}

func stringField(payload models.Payload, key string) (string, error) {
	v, ok := payload[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %T", key, v)
	}
	return s, nil
}

func intField(payload models.Payload, key string) (*int, error) {
	v, ok := payload[key]
	if !ok || v == nil {
		return nil, nil
	}

	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case float64:
		if x != float64(int(x)) {
			return nil, fmt.Errorf("%s must be a whole number, got %v", key, x)
		}
		n = int(x)
	case string:
		if x == "" {
			return nil, nil
		}
		parsed, err := strconv.Atoi(x)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number, got %q", key, x)
		}
		n = parsed
	default:
		return nil, fmt.Errorf("%s must be a number, got %T", key, v)
	}

	if n < 1 {
		return nil, fmt.Errorf("%s must be at least 1, got %d", key, n)
	}
	return &n, nil
}
