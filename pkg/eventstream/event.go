package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeDocumentIngested is emitted after a document is stored in the index.
	EventTypeDocumentIngested = "fastrag.document.ingested"
)

// DocumentIngestedEvent is a transport-neutral event payload for a stored document.
type DocumentIngestedEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Document      DocumentMeta `json:"document"`
	DurationMs    int64        `json:"duration_ms"`
}

// DocumentMeta describes the ingested document.
type DocumentMeta struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Format     string `json:"format"`
	Characters int    `json:"characters"`
}

// NewDocumentIngestedEvent stamps a new event for doc.
func NewDocumentIngestedEvent(doc DocumentMeta, took time.Duration) *DocumentIngestedEvent {
	return &DocumentIngestedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeDocumentIngested,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Document:      doc,
		DurationMs:    took.Milliseconds(),
	}
}
