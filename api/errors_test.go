package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/fastrag/pkg/embeddings"
	"github.com/papercomputeco/fastrag/pkg/parser"
	"github.com/papercomputeco/fastrag/pkg/rag"
	"github.com/papercomputeco/fastrag/pkg/vector"
)

var _ = Describe("error mapping", func() {
	DescribeTable("ingestError",
		func(err error, status int, detail string) {
			code, body := ingestError(err)
			Expect(code).To(Equal(status))
			Expect(body.Detail).To(ContainSubstring(detail))
		},
		Entry("unsupported format", fmt.Errorf("%w: a.xyz", parser.ErrUnsupportedFormat), fiber.StatusBadRequest, "Unsupported file type"),
		Entry("invalid request", fmt.Errorf("%w: filename is required", rag.ErrInvalidRequest), fiber.StatusBadRequest, "filename is required"),
		Entry("parse failure", fmt.Errorf("%w: bad pdf", parser.ErrParse), fiber.StatusInternalServerError, "Error during ingestion: parse error"),
		Entry("embedding failure", embeddings.ErrEmbedding, fiber.StatusInternalServerError, "Error during ingestion: embedding error"),
		Entry("store failure", vector.ErrStore, fiber.StatusInternalServerError, "Error during ingestion"),
	)

	DescribeTable("queryError",
		func(err error, status int, detail string) {
			code, body := queryError(err)
			Expect(code).To(Equal(status))
			Expect(body.Detail).To(ContainSubstring(detail))
		},
		Entry("invalid request", fmt.Errorf("%w: query is required", rag.ErrInvalidRequest), fiber.StatusBadRequest, "query is required"),
		Entry("empty index", rag.ErrEmptyIndex, fiber.StatusNotFound, "no documents have been ingested"),
		Entry("other", errors.New("boom"), fiber.StatusInternalServerError, "Error during querying: boom"),
	)

	It("wraps a bad top_k as an invalid request", func() {
		Expect(errInvalidTopK("x")).To(MatchError(rag.ErrInvalidRequest))
	})
})
