package handlers

import (
	"net/http"

	"dryad/internal/contextutil"
	"dryad/internal/service"
)

// SyncHandler handles HTTP requests for triggering a sync.
type SyncHandler struct {
	syncService service.SyncService
	reset       bool
}

// NewSyncHandler creates a handler that asks the sync loop to run now.
func NewSyncHandler(syncService service.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// NewResetHandler creates a handler that forgets the synced commit before
// triggering, so the next run starts over from the upstream head.
func NewResetHandler(syncService service.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService, reset: true}
}

// SyncResponse represents the response from the sync endpoints.
type SyncResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ServeHTTP handles POST /api/sync and POST /api/sync/reset. The run itself
// happens in the background.
func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	msg := "Sync started in background"
	if h.reset {
		if err := h.syncService.Reset(ctx); err != nil {
			handleServiceError(ctx, w, err, "Failed to reset sync state")
			return
		}
		msg = "Sync state reset, sync started in background"
	} else {
		h.syncService.Trigger(ctx)
	}

	writeJSON(ctx, w, http.StatusAccepted, SyncResponse{
		Message: msg,
		Status:  "accepted",
	})
}
