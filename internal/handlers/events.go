package handlers

import (
	"net/http"
	"strconv"

	"dryad/internal/contextutil"
	"dryad/internal/service"
	"dryad/internal/storage"
)

// EventsHandler serves the newest sync events.
type EventsHandler struct {
	syncService service.SyncService
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(syncService service.SyncService) *EventsHandler {
	return &EventsHandler{syncService: syncService}
}

// ServeHTTP handles GET /api/events?limit=N, newest event first.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			logger.WarnContext(ctx, "invalid limit", "limit", raw)
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	entries, err := h.syncService.Events(ctx, limit)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list events")
		return
	}
	if entries == nil {
		entries = []storage.LogEntry{}
	}
	writeJSON(ctx, w, http.StatusOK, entries)
}
