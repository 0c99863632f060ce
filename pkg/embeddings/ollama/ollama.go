// Package ollama implements pkg/embeddings' Embedder for Ollama's batch embed API
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/papercomputeco/fastrag/pkg/embeddings"
)

const (
	// DefaultEmbeddingModel is the default model used for embeddings.
	DefaultEmbeddingModel = "all-minilm"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"
)

// Embedder wraps Ollama's embedding API.
type Embedder struct {
	client *api.Client
	model  string
	dims   atomic.Uint64
}

// EmbedderConfig holds configuration for the Ollama embedder.
type EmbedderConfig struct {
	// BaseURL is the Ollama API URL (e.g., "http://localhost:11434").
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the embedding model to use (e.g., "all-minilm", "nomic-embed-text").
	// Defaults to DefaultEmbeddingModel if empty.
	Model string

	// Dimensions is the expected vector length. When zero it is learned
	// from the first response.
	Dimensions uint
}

// NewEmbedder creates a new embedder using Ollama's embedding API.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}

	e := &Embedder{
		client: api.NewClient(u, &http.Client{Timeout: 120 * time.Second}),
		model:  model,
	}
	e.dims.Store(uint64(cfg.Dimensions))

	return e, nil
}

// Embed converts texts into vector embeddings with one /api/embed call.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ollama embed: %v", embeddings.ErrEmbedding, err)
	}

	if err := embeddings.CheckBatch(len(texts), resp.Embeddings, e.Dimensions()); err != nil {
		return nil, err
	}

	e.dims.CompareAndSwap(0, uint64(len(resp.Embeddings[0])))

	return resp.Embeddings, nil
}

// Dimensions returns the configured or learned vector length.
func (e *Embedder) Dimensions() uint {
	return uint(e.dims.Load())
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
