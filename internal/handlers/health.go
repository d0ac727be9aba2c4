package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"dryad/internal/contextutil"
)

const healthCheckTimeout = 5 * time.Second

// Pinger checks that the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Checker checks that the vector index is usable.
type Checker interface {
	Check(ctx context.Context) error
}

type dependencyCheck struct {
	name  string
	probe func(ctx context.Context) error
}

// HealthHandler probes the dependencies a sync or search needs.
type HealthHandler struct {
	checks []dependencyCheck
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger, vectorStore Checker) *HealthHandler {
	return &HealthHandler{
		checks: []dependencyCheck{
			{name: "database", probe: db.PingContext},
			{name: "vector_store", probe: vectorStore.Check},
		},
	}
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status    string            `json:"status"` // "healthy" or "unhealthy"
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Issues    []string          `json:"issues,omitempty"`
}

// ServeHTTP handles GET /api/health. Dependencies are probed concurrently;
// any failure answers 503.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	errs := make([]error, len(h.checks))
	var wg sync.WaitGroup
	for i, c := range h.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = c.probe(probeCtx)
		}()
	}
	wg.Wait()

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]string, len(h.checks)),
	}
	for i, c := range h.checks {
		if errs[i] != nil {
			logger.WarnContext(ctx, "health check failed", "check", c.name, "error", errs[i])
			resp.Checks[c.name] = "error"
			resp.Issues = append(resp.Issues, c.name+"_unavailable")
			continue
		}
		resp.Checks[c.name] = "ok"
	}

	code := http.StatusOK
	if len(resp.Issues) > 0 {
		resp.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	writeJSON(ctx, w, code, resp)
}
