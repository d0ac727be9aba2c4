package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// EmbeddingsClient talks to an OpenAI-compatible embeddings endpoint.
type EmbeddingsClient struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	httpClient *http.Client
}

// NewEmbeddingsClient creates an embeddings client. Every vector it returns
// has exactly dimensions entries.
func NewEmbeddingsClient(baseURL, apiKey, model string, dimensions int) *EmbeddingsClient {
	return &EmbeddingsClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		httpClient: http.DefaultClient,
	}
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// EmbedTexts returns one vector per text, in the order of texts.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts to embed")
	}

	var resp embeddingsResponse
	req := embeddingsRequest{Model: c.model, Input: texts}
	if err := postJSON(ctx, c.httpClient, c.baseURL+"/v1/embeddings", c.apiKey, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) || vectors[d.Index] != nil {
			return nil, fmt.Errorf("invalid embedding index %d", d.Index)
		}
		if len(d.Embedding) != c.dimensions {
			return nil, fmt.Errorf("embedding %d has %d dimensions, expected %d", d.Index, len(d.Embedding), c.dimensions)
		}
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		vectors[d.Index] = vec
	}
	return vectors, nil
}
