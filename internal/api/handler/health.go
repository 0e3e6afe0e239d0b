package handler

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/scribe/internal/api/response"
)

// Pinger is a dependency whose connectivity is reported by the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Worker reports whether the queue worker is running.
type Worker interface {
	Running() bool
}

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health.
// Optional dependencies are keyed by name; a nil Pinger is reported as
// "disabled" and does not degrade the result.
func NewHealthHandler(worker Worker, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"queue": "ok"}
		degraded := false

		if !worker.Running() {
			checks["queue"] = "stopped"
			degraded = true
		}
		for name, p := range deps {
			switch {
			case p == nil:
				checks[name] = "disabled"
			case p.Ping(r.Context()) != nil:
				checks[name] = "degraded"
				degraded = true
			default:
				checks[name] = "ok"
			}
		}

		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more dependencies are unhealthy", checks)
			return
		}
		response.JSON(w, HealthResponse{Status: "ok", Checks: checks})
	}
}
