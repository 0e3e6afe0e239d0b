package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/scribe/internal/api/response"
	"github.com/kiranshivaraju/scribe/internal/store"
	"github.com/kiranshivaraju/scribe/pkg/models"
)

const (
	defaultArchiveLimit = 20
	maxArchiveLimit     = 100
)

// NewListArchiveHandler returns an http.HandlerFunc for GET /api/v1/admin/archive.
// Supports type, status, page and limit query parameters.
func NewListArchiveHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter := store.ArchiveFilter{
			Type:   q.Get("type"),
			Status: models.JobStatus(q.Get("status")),
			Page:   1,
			Limit:  defaultArchiveLimit,
		}
		if filter.Status != "" && !filter.Status.IsTerminal() {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"status must be completed, failed or cancelled", nil)
			return
		}
		if v := q.Get("page"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "page must be a positive integer", nil)
				return
			}
			filter.Page = n
		}
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer", nil)
				return
			}
			filter.Limit = min(n, maxArchiveLimit)
		}

		jobs, total, err := s.ListArchivedJobs(r.Context(), filter)
		if err != nil {
			slog.Error("list archived jobs failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list archived jobs", nil)
			return
		}
		if jobs == nil {
			jobs = []*models.ArchivedJob{}
		}

		response.Collection(w, jobs, response.PaginationMeta{
			Page:    filter.Page,
			Limit:   filter.Limit,
			Total:   total,
			HasNext: filter.Page*filter.Limit < total,
		})
	}
}

// NewGetArchivedJobHandler returns an http.HandlerFunc for GET /api/v1/admin/archive/{jobID}.
func NewGetArchivedJobHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
			return
		}

		job, err := s.GetArchivedJob(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Archived job not found", nil)
				return
			}
			slog.Error("get archived job failed", "job_id", id, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load archived job", nil)
			return
		}
		response.JSON(w, job)
	}
}
