package queue

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/scribe/pkg/models"
)

// ProgressReporter receives progress updates from a running handler.
// Calls are best-effort and last-write-wins; they may come from any goroutine.
type ProgressReporter interface {
	Report(jobID uuid.UUID, progress int, message string)
}

// Handler performs the work for one job type. It runs synchronously on the
// worker goroutine and returns either a result payload or an error.
type Handler interface {
	Handle(ctx context.Context, params models.Payload, jobID uuid.UUID, progress ProgressReporter) (models.Payload, error)
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, params models.Payload, jobID uuid.UUID, progress ProgressReporter) (models.Payload, error)

func (f HandlerFunc) Handle(ctx context.Context, params models.Payload, jobID uuid.UUID, progress ProgressReporter) (models.Payload, error) {
	return f(ctx, params, jobID, progress)
}

// Registry maps job types to handlers. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register associates jobType with h. Registering the same type again
// replaces the previous handler.
func (r *Registry) Register(jobType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = h
}

// Get returns the handler for jobType, or false if none is registered.
func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

// Types returns the registered job types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
