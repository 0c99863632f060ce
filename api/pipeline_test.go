package api

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/fastrag/pkg/answer/lexical"
	"github.com/papercomputeco/fastrag/pkg/embeddings/hashing"
	"github.com/papercomputeco/fastrag/pkg/logger"
	"github.com/papercomputeco/fastrag/pkg/rag"
	"github.com/papercomputeco/fastrag/pkg/vector/sqlitevec"
	"github.com/papercomputeco/fastrag/pkg/worker"
)

var _ = Describe("Handlers on the sqlite-vec store", func() {
	var (
		server  *Server
		driver  *sqlitevec.Driver
		pool    *worker.Pool
		tempDir string
	)

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()

		var err error
		driver, err = sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     filepath.Join(GinkgoT().TempDir(), "index.db"),
			Dimensions: hashing.DefaultDimensions,
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		pool, err = worker.NewPool(&worker.Config{NumWorkers: 2, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		service, err := rag.NewService(rag.Config{
			Embedder:  hashing.NewEmbedder(hashing.DefaultDimensions),
			Driver:    driver,
			Extractor: lexical.NewExtractor(),
			Pool:      pool,
			TempDir:   tempDir,
		})
		Expect(err).NotTo(HaveOccurred())

		server, err = NewServer(Config{ListenAddr: ":0"}, service, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		pool.Close()
		Expect(driver.Close()).To(Succeed())
	})

	ingest := func(filename, content string) {
		// No timeout: uploads queue behind the single sqlite connection.
		resp, err := server.app.Test(uploadRequest(filename, content), -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		resp.Body.Close()
	}

	It("answers a question from an ingested text file", func() {
		ingest("france.txt", "The capital of France is Paris.")

		resp, err := server.app.Test(getRequest("/query", map[string]string{"query": "What is the capital of France?"}))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		var body QueryResponse
		decodeBody(resp, &body)
		Expect(body.Answer).To(ContainSubstring("Paris"))
		Expect(body.Confidence).To(BeNumerically(">=", 0))
		Expect(body.Confidence).To(BeNumerically("<=", 1))
	})

	It("returns 404 when nothing has been ingested", func() {
		resp, err := server.app.Test(getRequest("/query", map[string]string{"query": "anything"}))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))

		var body ErrorResponse
		decodeBody(resp, &body)
		Expect(body.Detail).To(Equal("no documents have been ingested"))
	})

	It("lists the closest documents in distance order", func() {
		ingest("paris.txt", "Paris is the capital of France.")
		ingest("tokyo.txt", "Tokyo is the capital of Japan.")
		ingest("nile.txt", "The Nile is a long river in Africa.")

		resp, err := server.app.Test(getRequest("/query_doc", map[string]string{"query": "capital of Japan", "top_k": "3"}))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		var body QueryDocResponse
		decodeBody(resp, &body)
		Expect(body.Results.Documents[0]).To(HaveLen(3))
		Expect(body.Results.Documents[0][0]).To(Equal("Tokyo is the capital of Japan."))
		distances := body.Results.Distances[0]
		Expect(distances[0]).To(BeNumerically("<=", distances[1]))
		Expect(distances[1]).To(BeNumerically("<=", distances[2]))
	})

	It("counts distinct documents after concurrent duplicate uploads", func() {
		var wg sync.WaitGroup
		for i := range 12 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				name := fmt.Sprintf("doc-%d.txt", i%3)
				ingest(name, fmt.Sprintf("Document number %d.", i%3))
			}()
		}
		wg.Wait()

		resp, err := server.app.Test(getRequest("/db-health", nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		var body DBHealthResponse
		decodeBody(resp, &body)
		Expect(body.Status).To(Equal("Database is connected"))
		Expect(body.DocumentCount).NotTo(BeNil())
		Expect(*body.DocumentCount).To(Equal(3))

		entries, err := os.ReadDir(tempDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})
})
