package transcribe

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/scribe/internal/queue"
	"github.com/kiranshivaraju/scribe/pkg/models"
)

// Registrar is the part of the queue that accepts handlers.
type Registrar interface {
	Register(jobType string, h queue.Handler)
}

// Register installs the transcribe and full_pipeline handlers on r.
func Register(r Registrar, provider models.Transcriber, uploads *Uploads) {
	r.Register(TypeTranscribe, transcribeHandler(provider, uploads))
	r.Register(TypeFullPipeline, fullPipelineHandler(provider, uploads))
}

func transcribeHandler(provider models.Transcriber, uploads *Uploads) queue.HandlerFunc {
	return func(ctx context.Context, params models.Payload, jobID uuid.UUID, progress queue.ProgressReporter) (models.Payload, error) {
		defer discardAudio(params, uploads)

		p, err := openAudio(params, uploads)
		if err != nil {
			return nil, err
		}

		progress.Report(jobID, 10, "Loading audio...")
		progress.Report(jobID, 20, "Loading model...")

		tr, err := provider.Transcribe(ctx, models.TranscriptionRequest{
			AudioPath: p.AudioPath,
			Language:  p.Language,
			ModelSize: p.ModelSize,
		})
		if err != nil {
			return nil, fmt.Errorf("transcribe: %w", err)
		}

		progress.Report(jobID, 90, "Finalizing...")
		slog.Info("transcription finished",
			"job_id", jobID, "provider", provider.Name(), "language", tr.Language,
			"segments", len(tr.Segments), "audio_seconds", tr.Duration)

		return models.Payload{
			"transcript": tr.Text,
			"segments":   tr.Segments,
			"language":   tr.Language,
			"duration":   tr.Duration,
		}, nil
	}
}

func fullPipelineHandler(provider models.Transcriber, uploads *Uploads) queue.HandlerFunc {
	return func(ctx context.Context, params models.Payload, jobID uuid.UUID, progress queue.ProgressReporter) (models.Payload, error) {
		defer discardAudio(params, uploads)

		p, err := openAudio(params, uploads)
		if err != nil {
			return nil, err
		}

		progress.Report(jobID, 5, "Loading audio...")
		progress.Report(jobID, 10, "Loading Whisper model...")

		tr, err := provider.Transcribe(ctx, models.TranscriptionRequest{
			AudioPath:   p.AudioPath,
			Language:    p.Language,
			ModelSize:   p.ModelSize,
			Diarize:     true,
			NumSpeakers: p.NumSpeakers,
			MinSpeakers: p.MinSpeakers,
			MaxSpeakers: p.MaxSpeakers,
		})
		if err != nil {
			return nil, fmt.Errorf("transcribe with speakers: %w", err)
		}

		progress.Report(jobID, 90, "Finalizing...")
		summary := SummarizeSpeakers(tr.Segments)
		slog.Info("pipeline finished",
			"job_id", jobID, "provider", provider.Name(), "speakers", len(summary),
			"segments", len(tr.Segments), "audio_seconds", tr.Duration)

		return models.Payload{
			"language":               tr.Language,
			"num_speakers":           len(summary),
			"transcript":             tr.Text,
			"segments_with_speakers": tr.Segments,
			"speakers_summary":       summary,
			"duration":               tr.Duration,
		}, nil
	}
}

// openAudio decodes params and confirms the staged file is present. A file
// outside the staging directory is rejected and never deleted.
func openAudio(params models.Payload, uploads *Uploads) (Params, error) {
	p, err := ParamsFromPayload(params)
	if err != nil {
		return Params{}, fmt.Errorf("invalid params: %w", err)
	}
	if !uploads.Owns(p.AudioPath) {
		return Params{}, ErrForeignPath
	}
	if _, err := os.Stat(p.AudioPath); err != nil {
		return Params{}, fmt.Errorf("load audio: %w", err)
	}
	return p, nil
}

// CleanupObserver removes the staged audio of jobs that are cancelled before
// a handler could consume it.
func CleanupObserver(uploads *Uploads) queue.Observer {
	return queue.ObserverFunc(func(_ context.Context, job models.Job) {
		if job.Status != models.JobStatusCancelled {
			return
		}
		discardAudio(job.Params, uploads)
	})
}

// discardAudio removes the staged file named in params whatever the outcome,
// including when the rest of params fails to decode.
func discardAudio(params models.Payload, uploads *Uploads) {
	if path, ok := params["audio_path"].(string); ok {
		uploads.Remove(path)
	}
}

// SummarizeSpeakers totals talk time per speaker. Labels follow order of first
// appearance; the result is ordered by total time, longest first. Segments
// without a speaker are counted under UNKNOWN.
func SummarizeSpeakers(segments []models.Segment) []models.SpeakerSummary {
	index := map[string]int{}
	var out []models.SpeakerSummary

	for _, seg := range segments {
		speaker := seg.Speaker
		if speaker == "" {
			speaker = "UNKNOWN"
		}
		i, ok := index[speaker]
		if !ok {
			i = len(out)
			index[speaker] = i
			out = append(out, models.SpeakerSummary{
				ID:    speaker,
				Label: fmt.Sprintf("Speaker %d", i+1),
			})
		}
		out[i].TotalTime += seg.End - seg.Start
		out[i].Turns++
	}

	slices.SortStableFunc(out, func(a, b models.SpeakerSummary) int {
		return cmp.Compare(b.TotalTime, a.TotalTime)
	})
	return out
}
