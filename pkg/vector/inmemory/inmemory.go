// Package inmemory provides a process-local vector driver using brute-force
// cosine distance. Its contents are lost when the process exits.
package inmemory

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/papercomputeco/fastrag/pkg/vector"
)

// Driver implements vector.Driver in memory.
//
// Distance is 1 - cosine similarity. Documents keep the position of their
// first insertion, and equal distances are returned in that order.
type Driver struct {
	mu         sync.RWMutex
	dimensions uint
	order      []string
	docs       map[string]vector.Document
}

// NewDriver creates an empty driver. When dims is zero the dimension is
// fixed by the first document added.
func NewDriver(dims uint) *Driver {
	return &Driver{
		dimensions: dims,
		docs:       make(map[string]vector.Document),
	}
}

func clone(doc vector.Document) vector.Document {
	doc.Embedding = slices.Clone(doc.Embedding)
	if doc.Metadata != nil {
		doc.Metadata = maps.Clone(doc.Metadata)
	}
	return doc
}

// Add upserts documents. The call is validated before anything is stored.
func (d *Driver) Add(_ context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	dims := d.dimensions
	if dims == 0 {
		dims = uint(len(docs[0].Embedding))
	}
	if err := vector.CheckDimensions(docs, dims); err != nil {
		return err
	}
	d.dimensions = dims

	for _, doc := range docs {
		if _, ok := d.docs[doc.ID]; !ok {
			d.order = append(d.order, doc.ID)
		}
		d.docs[doc.ID] = clone(doc)
	}

	return nil
}

// Query returns the topK nearest documents by cosine distance.
func (d *Driver) Query(_ context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if topK <= 0 || len(d.order) == 0 {
		return []vector.QueryResult{}, nil
	}

	if uint(len(embedding)) != d.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, store expects %d",
			vector.ErrDimensionMismatch, len(embedding), d.dimensions)
	}

	results := make([]vector.QueryResult, 0, len(d.order))
	for _, id := range d.order {
		doc := d.docs[id]
		results = append(results, vector.QueryResult{
			Document: clone(doc),
			Distance: cosineDistance(embedding, doc.Embedding),
		})
	}

	vector.SortResults(results)

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Get retrieves documents by their IDs in insertion order.
func (d *Driver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]vector.Document, 0, len(ids))
	for _, id := range d.order {
		if slices.Contains(ids, id) {
			out = append(out, clone(d.docs[id]))
		}
	}
	return out, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(_ context.Context, ids []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range ids {
		delete(d.docs, id)
	}
	d.order = slices.DeleteFunc(d.order, func(id string) bool {
		_, ok := d.docs[id]
		return !ok
	})
	return nil
}

// Count returns the number of stored documents.
func (d *Driver) Count(_ context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order), nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

func cosineDistance(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
}

var _ vector.Driver = (*Driver)(nil)
