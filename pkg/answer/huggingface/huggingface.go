// Package huggingface implements pkg/answer's Extractor for endpoints
// speaking the Hugging Face inference question-answering shape.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/papercomputeco/fastrag/pkg/answer"
)

const (
	// DefaultModel is the extractive QA model requested when none is set.
	DefaultModel = "distilbert-base-cased-distilled-squad"

	// DefaultBaseURL is the hosted inference API.
	DefaultBaseURL = "https://api-inference.huggingface.co"
)

// Extractor calls a remote question-answering model.
type Extractor struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// ExtractorConfig holds configuration for the Hugging Face extractor.
type ExtractorConfig struct {
	// BaseURL defaults to DefaultBaseURL. Requests go to <BaseURL>/models/<Model>.
	BaseURL string

	// APIKey is sent as a bearer token. Falls back to HF_TOKEN.
	APIKey string

	// Model defaults to DefaultModel.
	Model string

	// Timeout bounds each request. Defaults to 60s.
	Timeout time.Duration
}

type request struct {
	Inputs inputs `json:"inputs"`
}

type inputs struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

type response struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
}

// NewExtractor creates a new Hugging Face extractor.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("HF_TOKEN")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Extractor{
		url:        strings.TrimRight(baseURL, "/") + "/models/" + model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Extract asks the model for the answer span in passage.
func (e *Extractor) Extract(ctx context.Context, question, passage string) (answer.Answer, error) {
	body, err := json.Marshal(request{Inputs: inputs{Question: question, Context: passage}})
	if err != nil {
		return answer.Answer{}, fmt.Errorf("%w: marshaling request: %v", answer.ErrExtraction, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return answer.Answer{}, fmt.Errorf("%w: creating request: %v", answer.ErrExtraction, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return answer.Answer{}, fmt.Errorf("%w: sending request: %v", answer.ErrExtraction, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return answer.Answer{}, fmt.Errorf("%w: reading response: %v", answer.ErrExtraction, err)
	}
	if resp.StatusCode != http.StatusOK {
		return answer.Answer{}, fmt.Errorf("%w: status %d: %s", answer.ErrExtraction, resp.StatusCode, string(raw))
	}

	r, err := decode(raw)
	if err != nil {
		return answer.Answer{}, err
	}

	start, end, ok := locate(passage, r)
	if !ok {
		return answer.Answer{}, fmt.Errorf("%w: answer %q is not a span of the passage", answer.ErrExtraction, r.Answer)
	}

	return answer.Answer{
		Text:  passage[start:end],
		Score: r.Score,
		Start: start,
		End:   end,
	}, nil
}

// Close closes idle connections.
func (e *Extractor) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

// decode accepts a single answer object or a ranked list of them.
func decode(raw []byte) (response, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var list []response
		if err := json.Unmarshal(raw, &list); err != nil {
			return response{}, fmt.Errorf("%w: decoding response: %v", answer.ErrExtraction, err)
		}
		if len(list) == 0 {
			return response{}, fmt.Errorf("%w: model returned no answers", answer.ErrExtraction)
		}
		return list[0], nil
	}

	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return response{}, fmt.Errorf("%w: decoding response: %v", answer.ErrExtraction, err)
	}
	return r, nil
}

// locate maps the model's character offsets to byte offsets in passage.
// When they do not line up with the answer text the first occurrence of the
// text is used instead.
func locate(passage string, r response) (int, int, bool) {
	start, okStart := byteOffset(passage, r.Start)
	end, okEnd := byteOffset(passage, r.End)
	if okStart && okEnd && start <= end && passage[start:end] == r.Answer {
		return start, end, true
	}

	if i := strings.Index(passage, r.Answer); i >= 0 {
		return i, i + len(r.Answer), true
	}
	return 0, 0, false
}

func byteOffset(s string, chars int) (int, bool) {
	if chars < 0 {
		return 0, false
	}
	n := 0
	for i := range s {
		if n == chars {
			return i, true
		}
		n++
	}
	if n == chars {
		return len(s), true
	}
	return 0, false
}

var _ answer.Extractor = (*Extractor)(nil)
