package vector

import "errors"

var (
	// ErrNotFound is returned when a document is not found in the vector store.
	ErrNotFound = errors.New("document not found")

	// ErrStore wraps failures of an individual store call.
	ErrStore = errors.New("vector store error")

	// ErrConnection is returned when the vector store cannot be reached or
	// initialized at startup.
	ErrConnection = errors.New("vector store connection failed")

	// ErrDimensionMismatch is returned when an embedding does not match the
	// dimensions the store was created with.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
