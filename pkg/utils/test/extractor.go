package testutils

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/papercomputeco/fastrag/pkg/answer"
)

// MockExtractor is a test answer extractor. By default it answers with the
// first sentence of the context at a fixed score.
type MockExtractor struct {
	mu sync.Mutex

	// Score is reported with every answer.
	Score float64

	// Answer overrides the span; it is not checked against the context.
	Answer *answer.Answer

	// FailExtract causes Extract to return an error.
	FailExtract bool

	// Contexts records every context passed to Extract.
	Contexts []string
}

// NewMockExtractor creates a new mock extractor.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{Score: 0.9}
}

func (m *MockExtractor) Extract(_ context.Context, _ string, passage string) (answer.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Contexts = append(m.Contexts, passage)

	if m.FailExtract {
		return answer.Answer{}, fmt.Errorf("%w: mock extract failure", answer.ErrExtraction)
	}
	if m.Answer != nil {
		return *m.Answer, nil
	}

	end := strings.IndexAny(passage, ".!?")
	if end < 0 {
		end = len(passage)
	} else {
		end++
	}

	return answer.Answer{
		Text:  passage[:end],
		Score: m.Score,
		Start: 0,
		End:   end,
	}, nil
}

func (m *MockExtractor) Close() error {
	return nil
}

var _ answer.Extractor = (*MockExtractor)(nil)
