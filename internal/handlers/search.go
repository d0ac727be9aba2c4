package handlers

import (
	"encoding/json"
	"net/http"

	"dryad/internal/contextutil"
	"dryad/internal/search"
	"dryad/internal/service"
)

// SearchHandler handles HTTP requests for code search.
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// SearchRequest represents the HTTP request payload for search.
type SearchRequest struct {
	Query string `json:"query"`
}

// ServeHTTP handles POST /api/search. The response is a JSON array of
// matching files, best match first.
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.searchService.Search(ctx, service.SearchRequest{Query: req.Query})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to search")
		return
	}

	results := resp.Results
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(ctx, w, http.StatusOK, results)
}
