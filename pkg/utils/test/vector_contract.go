package testutils

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/fastrag/pkg/vector"
)

// DriverContract registers the behaviour every vector.Driver must share.
// newDriver is called before each spec with 4 dimensional embeddings; the
// driver is closed after it.
func DriverContract(newDriver func() vector.Driver) {
	var (
		driver vector.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver()
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	doc := func(id string, v float32) vector.Document {
		return vector.Document{
			ID:        id,
			Text:      "text of " + id,
			Embedding: []float32{v, 1 - v, v / 2, 0.25},
			Metadata:  map[string]string{"filename": id + ".txt"},
		}
	}

	Describe("empty store", func() {
		It("returns no hits and no error", func() {
			results, err := driver.Query(ctx, []float32{1, 0, 0.5, 0.25}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})

		It("counts zero documents", func() {
			n, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(0))
		})
	})

	Describe("Add", func() {
		It("does nothing when given empty docs", func() {
			Expect(driver.Add(ctx, []vector.Document{})).To(Succeed())
		})

		It("stores text and metadata", func() {
			Expect(driver.Add(ctx, []vector.Document{doc("doc-1", 0.1)})).To(Succeed())

			docs, err := driver.Get(ctx, []string{"doc-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].ID).To(Equal("doc-1"))
			Expect(docs[0].Text).To(Equal("text of doc-1"))
			Expect(docs[0].Metadata).To(HaveKeyWithValue("filename", "doc-1.txt"))
		})

		It("upserts by id", func() {
			Expect(driver.Add(ctx, []vector.Document{doc("doc-1", 0.1)})).To(Succeed())

			updated := doc("doc-1", 0.9)
			updated.Text = "replaced"
			Expect(driver.Add(ctx, []vector.Document{updated})).To(Succeed())

			n, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))

			docs, err := driver.Get(ctx, []string{"doc-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Text).To(Equal("replaced"))
		})

		It("is visible to a query as soon as it returns", func() {
			d := doc("fresh", 0.3)
			Expect(driver.Add(ctx, []vector.Document{d})).To(Succeed())

			results, err := driver.Query(ctx, d.Embedding, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("fresh"))
			Expect(results[0].Text).To(Equal("text of fresh"))
		})

		It("rejects embeddings of the wrong size without storing anything", func() {
			bad := doc("bad", 0.2)
			bad.Embedding = []float32{1, 2}

			err := driver.Add(ctx, []vector.Document{doc("good", 0.1), bad})
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))

			n, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(0))
		})
	})

	Describe("Query", func() {
		BeforeEach(func() {
			Expect(driver.Add(ctx, []vector.Document{
				doc("doc-1", 0.1),
				doc("doc-2", 0.2),
				doc("doc-3", 0.3),
				doc("doc-4", 0.4),
				doc("doc-5", 0.5),
			})).To(Succeed())
		})

		It("returns the closest document first", func() {
			results, err := driver.Query(ctx, doc("q", 0.3).Embedding, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[0].ID).To(Equal("doc-3"))
		})

		It("never returns more than topK hits", func() {
			for _, k := range []int{1, 2, 5, 10} {
				results, err := driver.Query(ctx, doc("q", 0.3).Embedding, k)
				Expect(err).NotTo(HaveOccurred())
				Expect(len(results)).To(BeNumerically("<=", k))
			}
		})

		It("orders hits by non-decreasing distance", func() {
			results, err := driver.Query(ctx, doc("q", 0.05).Embedding, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(5))
			for i := 1; i < len(results); i++ {
				Expect(results[i-1].Distance).To(BeNumerically("<=", results[i].Distance))
			}
		})
	})

	Describe("Delete", func() {
		BeforeEach(func() {
			Expect(driver.Add(ctx, []vector.Document{
				doc("doc-1", 0.1),
				doc("doc-2", 0.2),
				doc("doc-3", 0.3),
			})).To(Succeed())
		})

		It("removes documents from results and counts", func() {
			Expect(driver.Delete(ctx, []string{"doc-3", "nonexistent"})).To(Succeed())

			n, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))

			results, err := driver.Query(ctx, doc("q", 0.3).Embedding, 10)
			Expect(err).NotTo(HaveOccurred())
			for _, r := range results {
				Expect(r.ID).NotTo(Equal("doc-3"))
			}
		})

		It("skips unknown ids in Get", func() {
			docs, err := driver.Get(ctx, []string{"doc-1", "nonexistent"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].ID).To(Equal("doc-1"))
		})
	})
}
