package asr

import (
	"fmt"

	"github.com/kiranshivaraju/scribe/internal/config"
	"github.com/kiranshivaraju/scribe/pkg/models"
)

// NewProvider constructs the transcription backend named by cfg.Provider.
// Called once at server startup.
func NewProvider(cfg config.ASRConfig) (models.Transcriber, error) {
	switch cfg.Provider {
	case "whisper":
		return NewWhisperProvider(cfg.Whisper, cfg.Timeout), nil
	case "openai":
		return NewOpenAIProvider(cfg.OpenAI, cfg.Timeout), nil
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown ASR provider %q: must be one of whisper, openai, mock", cfg.Provider)
	}
}
