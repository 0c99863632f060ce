// Package vector provides the storage contract for embedded documents and
// its implementations.
package vector

import (
	"cmp"
	"context"
	"fmt"
	"slices"
)

// Document represents a stored item with its embedding and metadata.
type Document struct {
	// ID is the content-derived identifier of the document.
	ID string

	// Text is the full extracted text the embedding was computed from.
	Text string

	// Embedding is the vector representation of the document content.
	Embedding []float32

	// Metadata carries descriptive attributes such as the source filename.
	// It is never used for retrieval.
	Metadata map[string]string
}

// QueryResult is a retrieval hit.
type QueryResult struct {
	Document

	// Distance to the query embedding under the driver's metric
	// (lower = more similar).
	Distance float32
}

// Driver handles storage and retrieval of vector embeddings.
type Driver interface {
	// Add stores documents with their embeddings.
	// If a document with the same ID already exists it is replaced.
	// Either every document in the call becomes visible or none does.
	Add(ctx context.Context, docs []Document) error

	// Query finds at most topK documents nearest to the given embedding,
	// ordered by ascending distance. An empty store yields no results
	// and no error.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Get retrieves documents by their IDs. Unknown IDs are skipped.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the driver.
	Close() error
}

// SortResults orders hits by ascending distance. The sort is stable, so
// callers that build results in insertion order keep it among ties.
func SortResults(results []QueryResult) {
	slices.SortStableFunc(results, func(a, b QueryResult) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
}

// CheckDimensions verifies every document embedding has dims entries.
// A zero dims accepts any non-empty embedding.
func CheckDimensions(docs []Document, dims uint) error {
	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			return fmt.Errorf("%w: document %s has no embedding", ErrDimensionMismatch, doc.ID)
		}
		if dims != 0 && uint(len(doc.Embedding)) != dims {
			return fmt.Errorf("%w: document %s has %d dimensions, store expects %d",
				ErrDimensionMismatch, doc.ID, len(doc.Embedding), dims)
		}
	}
	return nil
}
