package embeddings_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/fastrag/pkg/embeddings"
	testutils "github.com/papercomputeco/fastrag/pkg/utils/test"
)

var _ = Describe("CheckBatch", func() {
	It("accepts one vector per input", func() {
		Expect(embeddings.CheckBatch(2, [][]float32{{1, 2}, {3, 4}}, 2)).To(Succeed())
	})

	It("rejects a count mismatch", func() {
		err := embeddings.CheckBatch(2, [][]float32{{1, 2}}, 0)
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
	})

	It("rejects empty vectors", func() {
		err := embeddings.CheckBatch(1, [][]float32{{}}, 0)
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
	})

	It("rejects a dimension mismatch", func() {
		err := embeddings.CheckBatch(1, [][]float32{{1, 2, 3}}, 2)
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
	})
})

var _ = Describe("EmbedOne", func() {
	It("returns the single vector", func() {
		m := testutils.NewMockEmbedder()
		m.Embeddings["hello"] = []float32{0.5, 0.5, 0}

		v, err := embeddings.EmbedOne(context.Background(), m, "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal([]float32{0.5, 0.5, 0}))
	})

	It("propagates provider failures", func() {
		m := testutils.NewMockEmbedder()
		m.FailOn = "boom"

		_, err := embeddings.EmbedOne(context.Background(), m, "boom")
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
	})
})
