package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/papercomputeco/fastrag/pkg/vector"
)

// MockVectorDriver is a test vector driver that records calls and returns
// configurable results.
type MockVectorDriver struct {
	mu sync.Mutex

	documents []vector.Document

	// Results is returned by Query, truncated to topK.
	Results []vector.QueryResult

	// FailAdd, FailQuery and FailCount make the matching call return an error.
	FailAdd   bool
	FailQuery bool
	FailCount bool

	// QueriedTopK records the topK of the last Query call.
	QueriedTopK int
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		documents: make([]vector.Document, 0),
		Results:   make([]vector.QueryResult, 0),
	}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAdd {
		return fmt.Errorf("%w: mock add failure", vector.ErrStore)
	}
	m.documents = append(m.documents, docs...)
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, topK int) ([]vector.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.QueriedTopK = topK
	if m.FailQuery {
		return nil, fmt.Errorf("%w: mock query failure", vector.ErrStore)
	}
	if len(m.Results) < topK {
		return m.Results, nil
	}
	return m.Results[:topK], nil
}

func (m *MockVectorDriver) Get(_ context.Context, _ []string) ([]vector.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.documents, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, _ []string) error {
	return nil
}

func (m *MockVectorDriver) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailCount {
		return 0, fmt.Errorf("%w: mock count failure", vector.ErrStore)
	}
	return len(m.documents), nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}

// Documents returns every document passed to Add.
func (m *MockVectorDriver) Documents() []vector.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]vector.Document(nil), m.documents...)
}

var _ vector.Driver = (*MockVectorDriver)(nil)
