package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"go.uber.org/mock/gomock"

	"dryad/internal/search"
	"dryad/internal/service"
	"dryad/internal/service/mocks"
)

func TestSearchHandler_ServeHTTP(t *testing.T) {
	results := []search.Result{
		{Path: "cmd/main.go", Language: "Go", Goal: "parse flags", Score: 0.91, TreeCommit: "sha1"},
	}

	tests := []struct {
		name       string
		method     string
		body       string
		mockSetup  func(*mocks.MockSearchService)
		wantStatus int
		wantBody   any
	}{
		{
			name:   "successful search",
			method: http.MethodPost,
			body:   `{"query":"flags"}`,
			mockSetup: func(m *mocks.MockSearchService) {
				m.EXPECT().Search(gomock.Any(), service.SearchRequest{Query: "flags"}).
					Return(service.SearchResponse{Results: results}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   results,
		},
		{
			name:   "no results is an empty array",
			method: http.MethodPost,
			body:   `{"query":"nothing"}`,
			mockSetup: func(m *mocks.MockSearchService) {
				m.EXPECT().Search(gomock.Any(), gomock.Any()).Return(service.SearchResponse{}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   []search.Result{},
		},
		{
			name:       "method not allowed",
			method:     http.MethodGet,
			mockSetup:  func(m *mocks.MockSearchService) {},
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "invalid JSON body",
			method:     http.MethodPost,
			body:       "not json",
			mockSetup:  func(m *mocks.MockSearchService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "validation error",
			method: http.MethodPost,
			body:   `{"query":""}`,
			mockSetup: func(m *mocks.MockSearchService) {
				m.EXPECT().Search(gomock.Any(), gomock.Any()).
					Return(service.SearchResponse{}, &service.ValidationError{Field: "query", Message: "cannot be empty"})
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "external service error",
			method: http.MethodPost,
			body:   `{"query":"flags"}`,
			mockSetup: func(m *mocks.MockSearchService) {
				m.EXPECT().Search(gomock.Any(), gomock.Any()).
					Return(service.SearchResponse{}, service.WrapError(service.ErrExternalService, "failed to search"))
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:   "unexpected error",
			method: http.MethodPost,
			body:   `{"query":"flags"}`,
			mockSetup: func(m *mocks.MockSearchService) {
				m.EXPECT().Search(gomock.Any(), gomock.Any()).Return(service.SearchResponse{}, errors.New("boom"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockService := mocks.NewMockSearchService(ctrl)
			tt.mockSetup(mockService)
			handler := NewSearchHandler(mockService)

			req := httptest.NewRequest(tt.method, "/api/search", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("ServeHTTP() status = %v, want %v (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantBody == nil {
				return
			}

			var got []search.Result
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if !reflect.DeepEqual(got, tt.wantBody) {
				t.Errorf("ServeHTTP() body = %+v, want %+v", got, tt.wantBody)
			}
		})
	}
}

func TestSearchHandler_ResponseShape(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockSearchService(ctrl)
	mockService.EXPECT().Search(gomock.Any(), gomock.Any()).Return(service.SearchResponse{
		Results: []search.Result{{Path: "a.go", Language: "Go", Goal: "g", Score: 0.5, TreeCommit: "sha1"}},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewBufferString(`{"query":"q"}`))
	w := httptest.NewRecorder()
	NewSearchHandler(mockService).ServeHTTP(w, req)

	var raw []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for _, key := range []string{"path", "language", "goal", "score", "treeCommit"} {
		if _, ok := raw[0][key]; !ok {
			t.Errorf("response missing key %q: %v", key, raw[0])
		}
	}
}
