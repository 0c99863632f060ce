package answer_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/fastrag/pkg/answer"
)

var _ = Describe("Verify", func() {
	const passage = "The capital of France is Paris."

	It("accepts a span at its offsets", func() {
		Expect(answer.Verify(passage, answer.Answer{Text: "Paris", Score: 0.8, Start: 25, End: 30})).To(Succeed())
	})

	It("accepts a span without offsets", func() {
		Expect(answer.Verify(passage, answer.Answer{Text: "France", Score: 1})).To(Succeed())
	})

	It("rejects text that is not in the passage", func() {
		err := answer.Verify(passage, answer.Answer{Text: "Berlin", Score: 0.5})
		Expect(err).To(MatchError(answer.ErrExtraction))
	})

	It("rejects offsets that point elsewhere", func() {
		err := answer.Verify(passage, answer.Answer{Text: "Paris", Score: 0.5, Start: 4, End: 9})
		Expect(err).To(MatchError(answer.ErrExtraction))
	})

	It("rejects offsets past the end of the passage", func() {
		err := answer.Verify(passage, answer.Answer{Text: "Paris.", Score: 0.5, Start: 25, End: 40})
		Expect(err).To(MatchError(answer.ErrExtraction))
	})

	DescribeTable("rejects scores outside [0,1]",
		func(score float64) {
			err := answer.Verify(passage, answer.Answer{Text: "Paris", Score: score})
			Expect(err).To(MatchError(answer.ErrExtraction))
		},
		Entry("negative", -0.1),
		Entry("above one", 1.5),
		Entry("NaN", math.NaN()),
	)
})

var _ = Describe("Clamp", func() {
	DescribeTable("bounds scores",
		func(in, want float64) {
			Expect(answer.Clamp(in)).To(Equal(want))
		},
		Entry("inside", 0.4, 0.4),
		Entry("below", -2.0, 0.0),
		Entry("above", 3.0, 1.0),
		Entry("NaN", math.NaN(), 0.0),
	)
})
