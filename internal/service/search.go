package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_search_service.go -package=mocks -mock_names=SearchService=MockSearchService dryad/internal/service SearchService

import (
	"context"
	"fmt"
	"strings"

	"dryad/internal/contextutil"
	"dryad/internal/search"
)

// MaxQueryLength bounds the query text sent to the embedder.
const MaxQueryLength = 2000

// Searcher is the search backend, defined from the service's perspective.
type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
}

// SearchRequest represents a search request in the domain layer.
type SearchRequest struct {
	Query string
}

// SearchResponse represents a search response in the domain layer.
type SearchResponse struct {
	Results []search.Result
}

// SearchService answers free-text queries.
type SearchService interface {
	Search(ctx context.Context, req SearchRequest) (SearchResponse, error)
}

type searchService struct {
	searcher Searcher
}

// NewSearchService creates a new SearchService.
func NewSearchService(searcher Searcher) SearchService {
	return &searchService{searcher: searcher}
}

// Search validates the query and runs it.
func (s *searchService) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	query := strings.TrimSpace(req.Query)
	if query == "" {
		logger.WarnContext(ctx, "empty search query")
		return SearchResponse{}, &ValidationError{Field: "query", Message: "cannot be empty"}
	}
	if len(query) > MaxQueryLength {
		return SearchResponse{}, &ValidationError{Field: "query", Message: "is too long"}
	}

	results, err := s.searcher.Search(ctx, query)
	if err != nil {
		logger.ErrorContext(ctx, "search failed", "error", err)
		return SearchResponse{}, WrapError(fmt.Errorf("%w: %w", ErrExternalService, err), "failed to search")
	}

	logger.InfoContext(ctx, "search processed", "query_length", len(query), "results", len(results))
	return SearchResponse{Results: results}, nil
}
