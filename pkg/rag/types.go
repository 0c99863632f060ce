package rag

import "io"

// Metadata keys stored alongside every document.
const (
	MetadataFilename = "filename"
	MetadataFormat   = "format"
)

// IngestRequest is one uploaded document.
type IngestRequest struct {
	// Filename is the client supplied name. Its extension selects the parser.
	Filename string

	// Content is read only when the extension is recognized.
	Content io.Reader
}

// IngestResult describes a stored document.
type IngestResult struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Format     string `json:"format"`
	Characters int    `json:"characters"`
}

// QueryRequest is a question against the index.
type QueryRequest struct {
	Query string
	TopK  int
}

// QueryResult is an extracted answer.
type QueryResult struct {
	Query      string  `json:"query"`
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`

	// DocumentID is the passage the answer was drawn from.
	DocumentID string `json:"document_id,omitempty"`
}
