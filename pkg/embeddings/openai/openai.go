// Package openai implements pkg/embeddings' Embedder for OpenAI-compatible
// embedding endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/papercomputeco/fastrag/pkg/embeddings"
)

const (
	// DefaultEmbeddingModel is the default model used for embeddings.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// APIKeyEnv is read when no API key is configured.
	APIKeyEnv = "OPENAI_API_KEY"
)

// ErrMissingAPIKey is returned when neither the config nor the environment
// provides an API key.
var ErrMissingAPIKey = errors.New("openai api key not set")

// EmbedderConfig holds configuration for the OpenAI embedder.
type EmbedderConfig struct {
	// BaseURL overrides the API base URL, for OpenAI-compatible servers.
	BaseURL string

	// APIKey defaults to $OPENAI_API_KEY.
	APIKey string

	// Model defaults to DefaultEmbeddingModel.
	Model string

	// Dimensions requests shortened vectors from models that support it.
	// Zero uses the model's native size.
	Dimensions uint

	// MaxRetries is passed to the client. Nil keeps the client default.
	MaxRetries *int
}

// Embedder wraps the OpenAI embeddings API.
type Embedder struct {
	client openai.Client
	model  string
	dims   uint
}

// NewEmbedder creates a new embedder using the OpenAI embeddings API.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(APIKeyEnv)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set %s or embedding.api_key", ErrMissingAPIKey, APIKeyEnv)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries != nil {
		opts = append(opts, option.WithMaxRetries(*cfg.MaxRetries))
	}

	return &Embedder{
		client: openai.NewClient(opts...),
		model:  model,
		dims:   cfg.Dimensions,
	}, nil
}

// Embed converts texts into vector embeddings with one request.
// Results are placed by their reported index, not response order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	}
	if e.dims > 0 {
		params.Dimensions = openai.Int(int64(e.dims))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: openai embeddings: %v", embeddings.ErrEmbedding, err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", embeddings.ErrEmbedding, len(texts), len(resp.Data))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", embeddings.ErrEmbedding, d.Index)
		}
		if out[d.Index] != nil {
			return nil, fmt.Errorf("%w: duplicate embedding index %d", embeddings.ErrEmbedding, d.Index)
		}

		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}

	if err := embeddings.CheckBatch(len(texts), out, e.dims); err != nil {
		return nil, err
	}

	return out, nil
}

// Dimensions returns the requested vector length, or 0 for the model default.
func (e *Embedder) Dimensions() uint {
	return e.dims
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
