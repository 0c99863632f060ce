package sqlitevec_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/fastrag/pkg/logger"
	testutils "github.com/papercomputeco/fastrag/pkg/utils/test"
	"github.com/papercomputeco/fastrag/pkg/vector"
	"github.com/papercomputeco/fastrag/pkg/vector/sqlitevec"
)

var _ = Describe("Driver", func() {
	Describe("NewDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ""}, logger.Nop())
			Expect(err).To(MatchError(vector.ErrConnection))
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should error when dimension not specified", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:"}, logger.Nop())
			Expect(err).To(MatchError(vector.ErrConnection))
		})

		It("should create the parent directory of the database", func() {
			path := filepath.Join(GinkgoT().TempDir(), "nested", "index.db")
			driver, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: path, Dimensions: 4}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.Close()).To(Succeed())
			Expect(path).To(BeAnExistingFile())
		})
	})

	Describe("contract", func() {
		testutils.DriverContract(func() vector.Driver {
			driver, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			return driver
		})
	})

	Describe("persistence", func() {
		It("keeps documents across restarts", func() {
			ctx := context.Background()
			path := filepath.Join(GinkgoT().TempDir(), "index.db")

			driver, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: path, Dimensions: 4}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "doc-1", Text: "persisted", Embedding: []float32{0.1, 0.2, 0.3, 0.4}},
			})).To(Succeed())
			Expect(driver.Close()).To(Succeed())

			reopened, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: path, Dimensions: 4}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			defer reopened.Close()

			n, err := reopened.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))

			docs, err := reopened.Get(ctx, []string{"doc-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Text).To(Equal("persisted"))
			Expect(docs[0].Embedding[0]).To(BeNumerically("~", 0.1, 0.001))
		})
	})

	Describe("Query", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			var err error
			driver, err = sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:", Dimensions: 4}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("breaks distance ties by insertion order", func() {
			ctx := context.Background()
			same := []float32{0.5, 0.5, 0.5, 0.5}
			Expect(driver.Add(ctx, []vector.Document{{ID: "first", Text: "a", Embedding: same}})).To(Succeed())
			Expect(driver.Add(ctx, []vector.Document{{ID: "second", Text: "b", Embedding: same}})).To(Succeed())

			results, err := driver.Query(ctx, same, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("first"))
			Expect(results[1].ID).To(Equal("second"))
		})

		It("keeps the original rowid order for an upserted tie", func() {
			ctx := context.Background()
			same := []float32{0.5, 0.5, 0.5, 0.5}
			Expect(driver.Add(ctx, []vector.Document{{ID: "first", Text: "a", Embedding: same}})).To(Succeed())
			Expect(driver.Add(ctx, []vector.Document{{ID: "second", Text: "b", Embedding: same}})).To(Succeed())
			Expect(driver.Add(ctx, []vector.Document{{ID: "first", Text: "a2", Embedding: same}})).To(Succeed())

			results, err := driver.Query(ctx, same, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("first"))
			Expect(results[0].Text).To(Equal("a2"))
			Expect(results[1].ID).To(Equal("second"))
		})

		It("returns text and metadata with each hit", func() {
			ctx := context.Background()
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "near", Text: "near text", Embedding: []float32{1, 0, 0, 0}, Metadata: map[string]string{"filename": "near.txt"}},
				{ID: "far", Text: "far text", Embedding: []float32{0, 0, 0, 1}},
			})).To(Succeed())

			results, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("near"))
			Expect(results[0].Text).To(Equal("near text"))
			Expect(results[0].Metadata).To(HaveKeyWithValue("filename", "near.txt"))
			Expect(results[0].Distance).To(BeNumerically("~", 0, 1e-6))
			Expect(results[1].Distance).To(BeNumerically(">", results[0].Distance))
		})

		It("rejects a query of the wrong size", func() {
			_, err := driver.Query(context.Background(), []float32{1, 2}, 1)
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
		})

		It("returns nothing for a non-positive topK", func() {
			results, err := driver.Query(context.Background(), []float32{1, 2, 3, 4}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})
	})
})
