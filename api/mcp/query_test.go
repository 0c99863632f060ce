package mcp

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/fastrag/pkg/answer/lexical"
	"github.com/papercomputeco/fastrag/pkg/embeddings/hashing"
	"github.com/papercomputeco/fastrag/pkg/logger"
	"github.com/papercomputeco/fastrag/pkg/rag"
	"github.com/papercomputeco/fastrag/pkg/vector"
	"github.com/papercomputeco/fastrag/pkg/vector/inmemory"
)

var _ = Describe("Query tools", func() {
	var (
		server  *Server
		service *rag.Service
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		service, err = rag.NewService(rag.Config{
			Embedder:  hashing.NewEmbedder(hashing.DefaultDimensions),
			Driver:    inmemory.NewDriver(hashing.DefaultDimensions),
			Extractor: lexical.NewExtractor(),
			TempDir:   GinkgoT().TempDir(),
		})
		Expect(err).NotTo(HaveOccurred())

		server, err = NewServer(Config{Service: service, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
	})

	ingest := func(filename, text string) string {
		res, err := service.Ingest(ctx, rag.IngestRequest{Filename: filename, Content: strings.NewReader(text)})
		Expect(err).NotTo(HaveOccurred())
		return res.ID
	}

	Describe("handleQuery", func() {
		It("answers from the ingested document", func() {
			id := ingest("france.txt", "The capital of France is Paris.")

			res, out, err := server.handleQuery(ctx, &mcp.CallToolRequest{}, QueryInput{Query: "What is the capital of France?"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(out.Answer).To(ContainSubstring("Paris"))
			Expect(out.Confidence).To(BeNumerically(">=", 0))
			Expect(out.Confidence).To(BeNumerically("<=", 1))
			Expect(out.DocumentID).To(Equal(id))

			Expect(res.Content).To(HaveLen(1))
			text, ok := res.Content[0].(*mcp.TextContent)
			Expect(ok).To(BeTrue())
			Expect(text.Text).To(ContainSubstring(`"answer"`))
		})

		It("reports an empty index as a tool error", func() {
			res, _, err := server.handleQuery(ctx, &mcp.CallToolRequest{}, QueryInput{Query: "anything"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())

			text, ok := res.Content[0].(*mcp.TextContent)
			Expect(ok).To(BeTrue())
			Expect(text.Text).To(ContainSubstring(rag.ErrEmptyIndex.Error()))
		})

		It("reports a blank query as a tool error", func() {
			res, _, err := server.handleQuery(ctx, &mcp.CallToolRequest{}, QueryInput{Query: "  "})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})
	})

	Describe("handleQueryDocuments", func() {
		It("defaults top_k to 5", func() {
			for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
				ingest(name+".txt", "Document "+name+" talks about topic "+name+".")
			}

			res, out, err := server.handleQueryDocuments(ctx, &mcp.CallToolRequest{}, QueryDocumentsInput{Query: "topic"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(out.Count).To(Equal(5))
			Expect(out.Results).To(HaveLen(5))
		})

		It("returns documents ordered by distance with their filenames", func() {
			ingest("paris.txt", "Paris is the capital of France.")
			ingest("tokyo.txt", "Tokyo is the capital of Japan.")

			_, out, err := server.handleQueryDocuments(ctx, &mcp.CallToolRequest{}, QueryDocumentsInput{Query: "capital of Japan", TopK: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Query).To(Equal("capital of Japan"))
			Expect(out.Results).To(HaveLen(2))
			Expect(out.Results[0].Distance).To(BeNumerically("<=", out.Results[1].Distance))
			Expect([]string{out.Results[0].Filename, out.Results[1].Filename}).To(ConsistOf("paris.txt", "tokyo.txt"))
		})

		It("returns no results on an empty index", func() {
			res, out, err := server.handleQueryDocuments(ctx, &mcp.CallToolRequest{}, QueryDocumentsInput{Query: "topic", TopK: 3})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(out.Count).To(BeZero())
		})
	})

	Describe("buildDocumentResult", func() {
		It("copies the id, text, distance and filename", func() {
			result := buildDocumentResult(vector.QueryResult{
				Document: vector.Document{
					ID:       "abc",
					Text:     "hello",
					Metadata: map[string]string{rag.MetadataFilename: "hello.txt"},
				},
				Distance: 0.25,
			})

			Expect(result).To(Equal(DocumentResult{
				ID:       "abc",
				Filename: "hello.txt",
				Distance: 0.25,
				Text:     "hello",
			}))
		})

		It("leaves the filename empty without metadata", func() {
			result := buildDocumentResult(vector.QueryResult{Document: vector.Document{ID: "abc"}})
			Expect(result.Filename).To(BeEmpty())
		})
	})
})
