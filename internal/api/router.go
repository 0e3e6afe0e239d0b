package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/scribe/internal/api/middleware"
	"github.com/kiranshivaraju/scribe/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
// Auth is nil when no database is configured; queue routes are then open and
// admin routes are not mounted.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	SubmitJobHandler http.HandlerFunc
	JobStatusHandler http.HandlerFunc
	JobResultHandler http.HandlerFunc
	CancelJobHandler http.HandlerFunc
	QueueInfoHandler http.HandlerFunc

	CreateKeyHandler   http.HandlerFunc
	ListKeysHandler    http.HandlerFunc
	RevokeKeyHandler   http.HandlerFunc
	ListArchiveHandler http.HandlerFunc
	GetArchivedJob     http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Group(func(r chi.Router) {
		if deps.Auth != nil {
			r.Use(deps.Auth.Authenticate)
		}
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Post("/api/v1/queue/jobs", orNotImplemented(deps.SubmitJobHandler))
		r.Get("/api/v1/queue/jobs/{jobID}", orNotImplemented(deps.JobStatusHandler))
		r.Get("/api/v1/queue/jobs/{jobID}/result", orNotImplemented(deps.JobResultHandler))
		r.Post("/api/v1/queue/jobs/{jobID}/cancel", orNotImplemented(deps.CancelJobHandler))
		r.Get("/api/v1/queue/info", orNotImplemented(deps.QueueInfoHandler))

		if deps.Auth == nil {
			return
		}

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
			r.Get("/api/v1/admin/archive", orNotImplemented(deps.ListArchiveHandler))
			r.Get("/api/v1/admin/archive/{jobID}", orNotImplemented(deps.GetArchivedJob))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
