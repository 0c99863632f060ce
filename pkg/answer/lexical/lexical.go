// Package lexical provides an in-process answer extractor that picks the
// passage sentence closest to the question.
package lexical

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"

	"github.com/papercomputeco/fastrag/pkg/answer"
	"github.com/papercomputeco/fastrag/pkg/utils"
)

const (
	// overlapWeight is the share of the score given to content-term overlap.
	// The rest comes from string similarity.
	overlapWeight = 0.6

	// Within the similarity share, bigram cosine outweighs word Jaccard.
	cosineWeight  = 0.7
	jaccardWeight = 0.3
)

// Extractor scores every sentence of the passage against the question and
// answers with the best one. The answer is always a literal span of the
// passage and its score is in [0,1].
type Extractor struct{}

// NewExtractor creates a lexical extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the best scoring sentence of passage. Ties go to the
// earliest sentence.
func (e *Extractor) Extract(ctx context.Context, question, passage string) (answer.Answer, error) {
	if err := ctx.Err(); err != nil {
		return answer.Answer{}, fmt.Errorf("%w: %v", answer.ErrExtraction, err)
	}

	spans := Sentences(passage)
	if len(spans) == 0 {
		return answer.Answer{}, fmt.Errorf("%w: passage has no text", answer.ErrExtraction)
	}

	qTerms := termSet(utils.ContentTerms(question))
	q := strings.ToLower(question)

	best := answer.Answer{Score: -1}
	for _, s := range spans {
		text := passage[s.Start:s.End]
		sc := score(q, qTerms, text)
		if sc > best.Score {
			best = answer.Answer{Text: text, Score: sc, Start: s.Start, End: s.End}
		}
	}
	return best, nil
}

// Close is a no-op.
func (e *Extractor) Close() error {
	return nil
}

// Span is a byte range of a passage.
type Span struct {
	Start int
	End   int
}

// Sentences splits passage into trimmed sentence spans. A sentence ends at
// '.', '!' or '?' followed by whitespace or the end of the passage, or at a
// line break.
func Sentences(passage string) []Span {
	var spans []Span
	start := 0

	emit := func(end int) {
		s, e := trim(passage, start, end)
		if s < e {
			spans = append(spans, Span{Start: s, End: e})
		}
		start = end
	}

	for i, r := range passage {
		switch r {
		case '\n', '\r':
			emit(i)
		case '.', '!', '?':
			next := i + utf8.RuneLen(r)
			if next == len(passage) {
				continue
			}
			if nr, _ := utf8.DecodeRuneInString(passage[next:]); unicode.IsSpace(nr) {
				emit(next)
			}
		}
	}
	emit(len(passage))
	return spans
}

func trim(passage string, start, end int) (int, int) {
	for start < end {
		r, size := utf8.DecodeRuneInString(passage[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(passage[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	return start, end
}

// score rates a sentence against a lowercased question and its content
// terms. The result is in [0,1].
func score(question string, qTerms map[string]struct{}, sentence string) float64 {
	s := strings.ToLower(sentence)

	overlap := 0.0
	if len(qTerms) > 0 {
		hits := 0
		for t := range termSet(utils.ContentTerms(s)) {
			if _, ok := qTerms[t]; ok {
				hits++
			}
		}
		overlap = float64(hits) / float64(len(qTerms))
	}

	similarity := cosineWeight*float64(edlib.CosineSimilarity(question, s, 2)) +
		jaccardWeight*float64(edlib.JaccardSimilarity(question, s, 0))

	return answer.Clamp(overlapWeight*overlap + (1-overlapWeight)*similarity)
}

func termSet(terms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return set
}

var _ answer.Extractor = (*Extractor)(nil)
