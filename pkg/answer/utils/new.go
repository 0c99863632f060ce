// Package answerutils is the answer extraction utility package
package answerutils

import (
	"fmt"

	"github.com/papercomputeco/fastrag/pkg/answer"
	"github.com/papercomputeco/fastrag/pkg/answer/huggingface"
	"github.com/papercomputeco/fastrag/pkg/answer/lexical"
)

// Supported answer extraction providers.
const (
	ProviderLexical     = "lexical"
	ProviderHuggingFace = "huggingface"
)

type NewExtractorOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
}

func NewExtractor(o *NewExtractorOpts) (answer.Extractor, error) {
	switch o.ProviderType {
	case ProviderLexical, "":
		return lexical.NewExtractor(), nil
	case ProviderHuggingFace:
		return huggingface.NewExtractor(huggingface.ExtractorConfig{
			BaseURL: o.TargetURL,
			APIKey:  o.APIKey,
			Model:   o.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported answer provider: %s", o.ProviderType)
	}
}
