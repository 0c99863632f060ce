package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/fastrag/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("marshals DocumentIngestedEvent with expected top-level keys", func() {
		event := eventstream.NewDocumentIngestedEvent(eventstream.DocumentMeta{
			ID:         "abc123",
			Filename:   "notes.txt",
			Format:     "txt",
			Characters: 42,
		}, 1500*time.Millisecond)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKeyWithValue("event_type", eventstream.EventTypeDocumentIngested))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKeyWithValue("duration_ms", BeNumerically("==", 1500)))
		Expect(got["document"]).To(HaveKeyWithValue("id", "abc123"))
		Expect(got["document"]).To(HaveKeyWithValue("filename", "notes.txt"))
	})

	It("gives every event a fresh id", func() {
		a := eventstream.NewDocumentIngestedEvent(eventstream.DocumentMeta{ID: "x"}, 0)
		b := eventstream.NewDocumentIngestedEvent(eventstream.DocumentMeta{ID: "x"}, 0)
		Expect(a.EventID).NotTo(BeEmpty())
		Expect(a.EventID).NotTo(Equal(b.EventID))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeDocumentIngested).To(Equal("fastrag.document.ingested"))
	})

	It("provides ErrNilEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilEvent).To(MatchError("nil event"))
	})
})
