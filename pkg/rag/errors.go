package rag

import "errors"

var (
	// ErrInvalidRequest is returned when a request fails validation before
	// any pipeline stage runs.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrEmptyIndex is returned when a query finds no stored documents.
	ErrEmptyIndex = errors.New("no documents have been ingested")
)
