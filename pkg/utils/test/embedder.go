// Package testutils holds test doubles shared by the fastrag test suites.
package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/papercomputeco/fastrag/pkg/embeddings"
)

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	mu sync.Mutex

	Embeddings map[string][]float32

	// FailOn causes Embed to return an error when any input text matches
	FailOn string

	// Calls records every batch passed to Embed.
	Calls [][]string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, append([]string(nil), texts...))

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if m.FailOn != "" && text == m.FailOn {
			return nil, fmt.Errorf("%w: mock embedding failure for: %s", embeddings.ErrEmbedding, text)
		}

		if emb, ok := m.Embeddings[text]; ok {
			out[i] = emb
			continue
		}

		// Return a default embedding for any text
		out[i] = []float32{0.1, 0.2, 0.3}
	}

	return out, nil
}

func (m *MockEmbedder) Dimensions() uint {
	return 3
}

func (m *MockEmbedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*MockEmbedder)(nil)
