// Package embeddings defines the contract for turning text into fixed-size
// vectors and the checks every provider result must pass.
package embeddings

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmbedding wraps every failure reported by an embedding provider.
var ErrEmbedding = errors.New("embedding error")

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts each text into a vector embedding.
	// The result has one vector per input, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the length of every vector the embedder produces,
	// or 0 when it is not known until the first call.
	Dimensions() uint

	// Close releases any resources held by the embedder.
	Close() error
}

// CheckBatch validates a provider response against its request.
// A zero dims skips the length check.
func CheckBatch(inputs int, vectors [][]float32, dims uint) error {
	if len(vectors) != inputs {
		return fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbedding, inputs, len(vectors))
	}

	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w: embedding %d is empty", ErrEmbedding, i)
		}
		if dims != 0 && uint(len(v)) != dims {
			return fmt.Errorf("%w: embedding %d has %d dimensions, expected %d", ErrEmbedding, i, len(v), dims)
		}
	}

	return nil
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if err := CheckBatch(1, vectors, 0); err != nil {
		return nil, err
	}
	return vectors[0], nil
}
