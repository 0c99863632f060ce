// Package answer defines the extractive question answering contract: an
// answer is always a literal span of the passage it was drawn from.
package answer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrExtraction wraps every failure reported by an answer extractor,
// including answers that break the extractive contract.
var ErrExtraction = errors.New("answer extraction error")

// Answer is a span of a passage with the extractor's confidence in it.
type Answer struct {
	// Text is the literal span.
	Text string

	// Score is the confidence in [0,1].
	Score float64

	// Start and End are byte offsets of Text in the passage.
	// Both are zero when the extractor does not report offsets.
	Start int
	End   int
}

// Extractor finds the answer to a question inside a passage.
type Extractor interface {
	// Extract returns the best span of passage answering question.
	Extract(ctx context.Context, question, passage string) (Answer, error)

	// Close releases any resources held by the extractor.
	Close() error
}

// Verify checks that a is a literal span of passage with a score in [0,1].
func Verify(passage string, a Answer) error {
	if math.IsNaN(a.Score) || a.Score < 0 || a.Score > 1 {
		return fmt.Errorf("%w: score %v outside [0,1]", ErrExtraction, a.Score)
	}

	if a.Start == 0 && a.End == 0 {
		if !strings.Contains(passage, a.Text) {
			return fmt.Errorf("%w: answer %q is not a span of the passage", ErrExtraction, a.Text)
		}
		return nil
	}

	if a.Start < 0 || a.End < a.Start || a.End > len(passage) {
		return fmt.Errorf("%w: offsets [%d:%d] outside passage of length %d",
			ErrExtraction, a.Start, a.End, len(passage))
	}
	if passage[a.Start:a.End] != a.Text {
		return fmt.Errorf("%w: answer %q does not match passage[%d:%d]", ErrExtraction, a.Text, a.Start, a.End)
	}
	return nil
}

// Clamp bounds a score to [0,1]. NaN becomes 0.
func Clamp(score float64) float64 {
	switch {
	case math.IsNaN(score), score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
