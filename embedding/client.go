// Package embedding provides the client for the external embedding model
// backend and a persistent cache for computed vectors.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrUpstream marks a failure of the embedding backend itself: an error
// status, a malformed body, or a response with no embedding in it. Callers
// use it to tell upstream failures apart from bad input.
var ErrUpstream = errors.New("embedding backend error")

// Embedder converts text into a fixed-length vector using the named model.
type Embedder interface {
	Embed(ctx context.Context, text, model string) ([]float64, error)
}

// OllamaClient calls an Ollama-compatible embeddings endpoint:
// POST {base}/api/embeddings with {"model": ..., "prompt": ...}.
type OllamaClient struct {
	baseURL string
	client  *http.Client
}

// NewOllamaClient creates a client for the backend at baseURL. Request
// deadlines come from the caller's context, not the HTTP client.
func NewOllamaClient(baseURL string) *OllamaClient {
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed sends text to the backend and returns the resulting vector.
func (c *OllamaClient) Embed(ctx context.Context, text, model string) ([]float64, error) {
	body, err := json.Marshal(embedRequest{Model: model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// Context errors stay visible through the wrap so callers can
		// distinguish a timeout from other backend failures.
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, string(b))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrUpstream, err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("%w: response contains no embedding", ErrUpstream)
	}

	return parsed.Embedding, nil
}
