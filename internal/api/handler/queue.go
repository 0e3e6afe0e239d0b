package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/scribe/internal/api/response"
	"github.com/kiranshivaraju/scribe/internal/queue"
	"github.com/kiranshivaraju/scribe/internal/transcribe"
	"github.com/kiranshivaraju/scribe/pkg/models"
)

// multipartOverhead is the room left for form fields on top of the audio.
const multipartOverhead = 1 << 20

// JobQueue is the part of the job queue the HTTP layer depends on.
type JobQueue interface {
	Submit(ctx context.Context, jobType string, params models.Payload) (uuid.UUID, error)
	Status(id uuid.UUID) (models.Job, error)
	Cancel(ctx context.Context, id uuid.UUID) bool
	Info() models.QueueInfo
	Running() bool
	Registry() *queue.Registry
}

// SubmitResponse is returned by POST /api/v1/queue/jobs.
type SubmitResponse struct {
	JobID     uuid.UUID        `json:"job_id"`
	Status    models.JobStatus `json:"status"`
	QueueInfo models.QueueInfo `json:"queue_info"`
}

// ResultResponse is returned once a job has completed.
type ResultResponse struct {
	Result   models.Payload `json:"result"`
	Duration float64        `json:"duration"`
}

// ProgressResponse is returned while a job is still pending or processing.
type ProgressResponse struct {
	Status          models.JobStatus `json:"status"`
	Progress        int              `json:"progress"`
	ProgressMessage string           `json:"progress_message"`
}

// NewSubmitJobHandler returns an http.HandlerFunc for POST /api/v1/queue/jobs.
//
// A multipart body carries an audio file that is staged under uploads and
// turned into a transcription job. A JSON body names the job type and its
// params directly; any audio_path it names must already be staged.
func NewSubmitJobHandler(q JobQueue, uploads *transcribe.Uploads) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

		var (
			jobType string
			params  models.Payload
			staged  string
		)
		if mediaType == "multipart/form-data" {
			var ok bool
			jobType, params, staged, ok = readMultipartJob(w, r, q, uploads)
			if !ok {
				return
			}
		} else {
			var ok bool
			jobType, params, ok = readJSONJob(w, r, q, uploads)
			if !ok {
				return
			}
		}

		id, err := q.Submit(r.Context(), jobType, params)
		if err != nil {
			uploads.Remove(staged)
			if errors.Is(err, queue.ErrQueueClosed) {
				response.Error(w, http.StatusServiceUnavailable,
					"QUEUE_CLOSED", "The queue is not accepting jobs", nil)
				return
			}
			slog.Error("submit job failed", "job_type", jobType, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to submit job", nil)
			return
		}

		response.Accepted(w, SubmitResponse{
			JobID:     id,
			Status:    models.JobStatusPending,
			QueueInfo: q.Info(),
		})
	}
}

func readMultipartJob(w http.ResponseWriter, r *http.Request, q JobQueue, uploads *transcribe.Uploads) (string, models.Payload, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, uploads.MaxBytes()+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(w, http.StatusRequestEntityTooLarge,
				"FILE_TOO_LARGE", "Audio file exceeds the upload limit", nil)
			return "", nil, "", false
		}
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid multipart body", nil)
		return "", nil, "", false
	}
	defer r.MultipartForm.RemoveAll()

	jobType := r.FormValue("task_type")
	if jobType == "" {
		jobType = transcribe.TypeFullPipeline
	}
	if !knownType(w, q, jobType) {
		return "", nil, "", false
	}

	p := transcribe.Params{
		Language:  r.FormValue("language"),
		ModelSize: r.FormValue("model_size"),
	}
	if p.Language == "" {
		p.Language = "auto"
	}
	if p.ModelSize == "" {
		p.ModelSize = "base"
	}
	if jobType == transcribe.TypeFullPipeline {
		for field, dst := range map[string]**int{
			"num_speakers": &p.NumSpeakers,
			"min_speakers": &p.MinSpeakers,
			"max_speakers": &p.MaxSpeakers,
		} {
			n, err := formInt(r, field)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
				return "", nil, "", false
			}
			*dst = n
		}
		if p.MinSpeakers != nil && p.MaxSpeakers != nil && *p.MinSpeakers > *p.MaxSpeakers {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"min_speakers must not exceed max_speakers", nil)
			return "", nil, "", false
		}
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "No audio file", nil)
		return "", nil, "", false
	}
	defer file.Close()

	if err := uploads.Validate(header.Filename, header.Size); err != nil {
		writeUploadError(w, err)
		return "", nil, "", false
	}
	path, err := uploads.Save(header.Filename, file)
	if err != nil {
		writeUploadError(w, err)
		return "", nil, "", false
	}

	p.AudioPath = path
	return jobType, p.Payload(), path, true
}

func readJSONJob(w http.ResponseWriter, r *http.Request, q JobQueue, uploads *transcribe.Uploads) (string, models.Payload, bool) {
	var req struct {
		Type   string         `json:"type"`
		Params models.Payload `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return "", nil, false
	}
	if req.Type == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "type is required", nil)
		return "", nil, false
	}
	if !knownType(w, q, req.Type) {
		return "", nil, false
	}
	if raw, ok := req.Params["audio_path"]; ok {
		path, _ := raw.(string)
		if !uploads.Owns(path) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				transcribe.ErrForeignPath.Error(), nil)
			return "", nil, false
		}
	}
	return req.Type, req.Params, true
}

func knownType(w http.ResponseWriter, q JobQueue, jobType string) bool {
	if _, ok := q.Registry().Get(jobType); ok {
		return true
	}
	response.Error(w, http.StatusBadRequest, "UNKNOWN_JOB_TYPE",
		"Unknown job type: "+jobType, map[string]any{"supported": q.Registry().Types()})
	return false
}

func formInt(r *http.Request, field string) (*int, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return nil, errors.New(field + " must be a positive integer")
	}
	return &n, nil
}

func writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, transcribe.ErrFileTooLarge):
		response.Error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", err.Error(), nil)
	case errors.Is(err, transcribe.ErrUnsupportedFormat), errors.Is(err, transcribe.ErrEmptyFile):
		response.Error(w, http.StatusBadRequest, "INVALID_AUDIO", err.Error(), nil)
	default:
		slog.Error("stage upload failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store audio", nil)
	}
}

// NewJobStatusHandler returns an http.HandlerFunc for GET /api/v1/queue/jobs/{jobID}.
func NewJobStatusHandler(q JobQueue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := lookupJob(w, r, q)
		if !ok {
			return
		}
		response.JSON(w, job)
	}
}

// NewJobResultHandler returns an http.HandlerFunc for GET /api/v1/queue/jobs/{jobID}/result.
func NewJobResultHandler(q JobQueue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := lookupJob(w, r, q)
		if !ok {
			return
		}

		switch job.Status {
		case models.JobStatusCompleted:
			response.JSON(w, ResultResponse{
				Result:   job.Result,
				Duration: job.Duration().Seconds(),
			})
		case models.JobStatusFailed:
			msg := "job failed"
			if job.Error != nil {
				msg = *job.Error
			}
			response.Error(w, http.StatusInternalServerError, "JOB_FAILED", msg, nil)
		case models.JobStatusCancelled:
			response.Error(w, http.StatusConflict, "JOB_CANCELLED", "Job was cancelled", nil)
		default:
			response.Accepted(w, ProgressResponse{
				Status:          job.Status,
				Progress:        job.Progress,
				ProgressMessage: job.ProgressMessage,
			})
		}
	}
}

// NewCancelJobHandler returns an http.HandlerFunc for POST /api/v1/queue/jobs/{jobID}/cancel.
func NewCancelJobHandler(q JobQueue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := jobID(w, r)
		if !ok {
			return
		}

		if q.Cancel(r.Context(), id) {
			response.JSON(w, map[string]any{
				"job_id": id,
				"status": models.JobStatusCancelled,
			})
			return
		}

		job, err := q.Status(id)
		if err != nil {
			response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
			return
		}
		response.Error(w, http.StatusConflict, "NOT_CANCELLABLE",
			"Only pending jobs can be cancelled", map[string]any{"status": job.Status})
	}
}

// NewQueueInfoHandler returns an http.HandlerFunc for GET /api/v1/queue/info.
func NewQueueInfoHandler(q JobQueue) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, q.Info())
	}
}

func lookupJob(w http.ResponseWriter, r *http.Request, q JobQueue) (models.Job, bool) {
	id, ok := jobID(w, r)
	if !ok {
		return models.Job{}, false
	}
	job, err := q.Status(id)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
			return models.Job{}, false
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load job", nil)
		return models.Job{}, false
	}
	return job, true
}

func jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}
