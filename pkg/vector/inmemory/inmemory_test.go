package inmemory_test

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	testutils "github.com/papercomputeco/fastrag/pkg/utils/test"
	"github.com/papercomputeco/fastrag/pkg/vector"
	"github.com/papercomputeco/fastrag/pkg/vector/inmemory"
)

var _ = Describe("Driver", func() {
	Describe("contract", func() {
		testutils.DriverContract(func() vector.Driver {
			return inmemory.NewDriver(4)
		})
	})

	It("learns its dimensions from the first document", func() {
		ctx := context.Background()
		d := inmemory.NewDriver(0)

		Expect(d.Add(ctx, []vector.Document{{ID: "a", Text: "a", Embedding: []float32{1, 0}}})).To(Succeed())

		err := d.Add(ctx, []vector.Document{{ID: "b", Text: "b", Embedding: []float32{1, 0, 0}}})
		Expect(err).To(MatchError(vector.ErrDimensionMismatch))
	})

	It("breaks distance ties by first insertion", func() {
		ctx := context.Background()
		d := inmemory.NewDriver(2)
		same := []float32{1, 1}

		Expect(d.Add(ctx, []vector.Document{
			{ID: "first", Text: "1", Embedding: same},
			{ID: "second", Text: "2", Embedding: same},
		})).To(Succeed())
		// Re-adding keeps the original position.
		Expect(d.Add(ctx, []vector.Document{{ID: "first", Text: "1b", Embedding: same}})).To(Succeed())

		results, err := d.Query(ctx, same, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(results[0].ID).To(Equal("first"))
		Expect(results[0].Text).To(Equal("1b"))
		Expect(results[1].ID).To(Equal("second"))
	})

	It("does not share embedding slices with callers", func() {
		ctx := context.Background()
		d := inmemory.NewDriver(2)
		emb := []float32{1, 0}

		Expect(d.Add(ctx, []vector.Document{{ID: "a", Text: "a", Embedding: emb}})).To(Succeed())
		emb[0] = 0

		docs, err := d.Get(ctx, []string{"a"})
		Expect(err).NotTo(HaveOccurred())
		Expect(docs[0].Embedding).To(Equal([]float32{1, 0}))
	})

	It("is safe for concurrent use", func() {
		ctx := context.Background()
		d := inmemory.NewDriver(2)

		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				id := string(rune('a' + i%26))
				Expect(d.Add(ctx, []vector.Document{{ID: id, Text: id, Embedding: []float32{float32(i), 1}}})).To(Succeed())
				_, err := d.Query(ctx, []float32{1, 1}, 3)
				Expect(err).NotTo(HaveOccurred())
			}()
		}
		wg.Wait()

		n, err := d.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(26))
	})
})
