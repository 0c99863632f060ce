package hashing_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/fastrag/pkg/embeddings/hashing"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var _ = Describe("Hashing Embedder", func() {
	var (
		e   *hashing.Embedder
		ctx context.Context
	)

	BeforeEach(func() {
		e = hashing.NewEmbedder(0)
		ctx = context.Background()
	})

	It("defaults to 384 dimensions", func() {
		Expect(e.Dimensions()).To(Equal(hashing.DefaultDimensions))
	})

	It("returns one unit vector per input in order", func() {
		vecs, err := e.Embed(ctx, []string{"alpha beta", "gamma delta", "alpha beta"})
		Expect(err).NotTo(HaveOccurred())
		Expect(vecs).To(HaveLen(3))
		Expect(vecs[0]).To(Equal(vecs[2]))
		Expect(vecs[0]).NotTo(Equal(vecs[1]))

		for _, v := range vecs {
			Expect(v).To(HaveLen(384))
			Expect(cosine(v, v)).To(BeNumerically("~", 1, 1e-6))
		}
	})

	It("places related texts closer than unrelated ones", func() {
		vecs, err := e.Embed(ctx, []string{
			"What is the capital of France?",
			"The capital of France is Paris.",
			"Photosynthesis converts sunlight into chemical energy.",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(cosine(vecs[0], vecs[1])).To(BeNumerically(">", cosine(vecs[0], vecs[2])))
	})

	It("keeps stopword-only text non-zero", func() {
		vecs, err := e.Embed(ctx, []string{"the of and"})
		Expect(err).NotTo(HaveOccurred())
		Expect(cosine(vecs[0], vecs[0])).To(BeNumerically("~", 1, 1e-6))
	})
})
