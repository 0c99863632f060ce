// Package hashing implements an offline pkg/embeddings Embedder using the
// feature hashing trick over word unigrams and bigrams.
//
// It needs no model or network, so it backs the "offline" preset and tests.
// Vectors are L2 normalized; texts sharing content words land close together.
package hashing

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/papercomputeco/fastrag/pkg/embeddings"
	"github.com/papercomputeco/fastrag/pkg/utils"
)

// DefaultDimensions matches the all-minilm vector size so stores created
// with either provider share a schema.
const DefaultDimensions uint = 384

// Embedder hashes tokens into a fixed number of buckets.
type Embedder struct {
	dims uint
}

// NewEmbedder creates a hashing embedder. Zero dims uses DefaultDimensions.
func NewEmbedder(dims uint) *Embedder {
	if dims == 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dims: dims}
}

// Embed implements embeddings.Embedder.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *Embedder) vector(text string) []float32 {
	vec := make([]float64, e.dims)

	terms := utils.ContentTerms(text)
	for i, t := range terms {
		e.add(vec, t, 1)
		if i > 0 {
			e.add(vec, terms[i-1]+" "+t, 0.5)
		}
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, e.dims)
	if norm == 0 {
		// Keep the vector non-zero so cosine distance stays defined.
		out[0] = 1
		return out
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

func (e *Embedder) add(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()

	idx := sum % uint64(e.dims)
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

// Dimensions implements embeddings.Embedder.
func (e *Embedder) Dimensions() uint {
	return e.dims
}

// Close implements embeddings.Embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
