// Package models contains shared data models used across the scribe codebase.
package models

import "context"

// Transcriber is the core interface that all speech-to-text backends must implement.
// Handlers receive it by injection and never name a concrete backend.
type Transcriber interface {
	// Transcribe converts the audio file at req.AudioPath into text. When
	// req.Diarize is set the returned segments carry speaker labels.
	Transcribe(ctx context.Context, req TranscriptionRequest) (*Transcript, error)

	// Name returns the backend identifier (e.g., "whisper", "openai").
	Name() string
}

// TranscriptionRequest is the input to a transcription operation.
type TranscriptionRequest struct {
	AudioPath   string
	Language    string // "auto" lets the backend detect it
	ModelSize   string
	Diarize     bool
	NumSpeakers *int
	MinSpeakers *int
	MaxSpeakers *int
}

// Segment is one timed span of recognized speech.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// Transcript is the output of a transcription operation.
type Transcript struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Segments []Segment `json:"segments"`
}

// SpeakerSummary aggregates talk time for one diarized speaker. Label is
// "Speaker N" in order of first appearance.
type SpeakerSummary struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	TotalTime float64 `json:"total_time"`
	Turns     int     `json:"turns"`
}
