// Package rag sequences the ingest and query pipelines: parse, embed and
// store on the way in; embed, retrieve and extract on the way out.
package rag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/papercomputeco/fastrag/pkg/answer"
	"github.com/papercomputeco/fastrag/pkg/docid"
	"github.com/papercomputeco/fastrag/pkg/embeddings"
	"github.com/papercomputeco/fastrag/pkg/eventstream"
	"github.com/papercomputeco/fastrag/pkg/eventstream/nop"
	"github.com/papercomputeco/fastrag/pkg/metrics"
	"github.com/papercomputeco/fastrag/pkg/parser"
	"github.com/papercomputeco/fastrag/pkg/vector"
	"github.com/papercomputeco/fastrag/pkg/worker"
)

// Config holds the collaborators of a Service. They are shared, built once
// at startup, and not closed by the Service.
type Config struct {
	Embedder  embeddings.Embedder
	Driver    vector.Driver
	Extractor answer.Extractor

	// Parser defaults to parser.New(nil).
	Parser *parser.Parser

	// Pool runs parsing and embedding off the request goroutine.
	// A nil pool runs them inline.
	Pool *worker.Pool

	// Publisher defaults to a no-op publisher.
	Publisher eventstream.Publisher

	// Metrics may be nil.
	Metrics *metrics.Metrics

	// TempDir holds uploads while they are parsed. Defaults to os.TempDir().
	TempDir string

	Logger *slog.Logger
}

// Service runs the ingest and query pipelines.
type Service struct {
	parser    *parser.Parser
	embedder  embeddings.Embedder
	driver    vector.Driver
	extractor answer.Extractor
	pool      *worker.Pool
	publisher eventstream.Publisher
	metrics   *metrics.Metrics
	tempDir   string
	logger    *slog.Logger
}

// NewService validates c and builds a Service.
func NewService(c Config) (*Service, error) {
	if c.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if c.Driver == nil {
		return nil, errors.New("vector driver is required")
	}
	if c.Extractor == nil {
		return nil, errors.New("answer extractor is required")
	}

	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.Parser == nil {
		c.Parser = parser.New(&parser.Config{Logger: c.Logger})
	}
	if c.Publisher == nil {
		c.Publisher = nop.NewPublisher()
	}
	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}

	return &Service{
		parser:    c.Parser,
		embedder:  c.Embedder,
		driver:    c.Driver,
		extractor: c.Extractor,
		pool:      c.Pool,
		publisher: c.Publisher,
		metrics:   c.Metrics,
		tempDir:   c.TempDir,
		logger:    c.Logger,
	}, nil
}

// Ingest stores one document. The filename extension is checked before the
// content is read, and the temporary upload file is removed on every path.
// Re-ingesting the same filename and text replaces the stored record.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	started := time.Now()

	res, err := s.ingest(ctx, req)
	switch {
	case err == nil:
		s.metrics.Ingest(metrics.OutcomeSuccess)
	case errors.Is(err, parser.ErrUnsupportedFormat):
		s.metrics.Ingest(metrics.OutcomeUnsupported)
	case errors.Is(err, ErrInvalidRequest):
		s.metrics.Ingest(metrics.OutcomeInvalid)
	default:
		s.metrics.Ingest(metrics.OutcomeError)
	}
	if err != nil {
		s.logger.Warn("ingest failed", "filename", req.Filename, "error", err)
		return nil, err
	}

	took := time.Since(started)
	s.logger.Info("document ingested",
		"id", res.ID,
		"filename", res.Filename,
		"format", res.Format,
		"characters", res.Characters,
		"duration", took,
	)
	s.publish(ctx, res, took)
	return res, nil
}

func (s *Service) ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if req.Filename == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidRequest)
	}

	format := parser.DetectFormat(req.Filename)
	if !format.Known() {
		return nil, fmt.Errorf("%w: %s", parser.ErrUnsupportedFormat, req.Filename)
	}
	if req.Content == nil {
		return nil, fmt.Errorf("%w: file content is required", ErrInvalidRequest)
	}

	path, err := s.stage(req.Content, format)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("could not remove upload", "path", path, "error", err)
		}
	}()

	start := time.Now()
	text, err := worker.Do(ctx, s.pool, func(ctx context.Context) (string, error) {
		return s.parser.Parse(ctx, path, format)
	})
	s.metrics.Stage(metrics.StageParse, time.Since(start))
	if err != nil {
		return nil, err
	}

	embedding, err := s.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	doc := vector.Document{
		ID:        docid.Generate(req.Filename, text),
		Text:      text,
		Embedding: embedding,
		Metadata: map[string]string{
			MetadataFilename: req.Filename,
			MetadataFormat:   format.String(),
		},
	}

	start = time.Now()
	err = s.driver.Add(ctx, []vector.Document{doc})
	s.metrics.Stage(metrics.StageStore, time.Since(start))
	if err != nil {
		return nil, err
	}

	return &IngestResult{
		ID:         doc.ID,
		Filename:   req.Filename,
		Format:     format.String(),
		Characters: len(text),
	}, nil
}

// stage copies the upload into a temp file owned by this request.
func (s *Service) stage(content io.Reader, format parser.Format) (string, error) {
	f, err := os.CreateTemp(s.tempDir, "fastrag-upload-*"+format.Extension())
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	path := f.Name()

	_, copyErr := io.Copy(f, content)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("saving upload: %w", err)
	}
	return path, nil
}

func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	defer func() { s.metrics.Stage(metrics.StageEmbed, time.Since(start)) }()

	return worker.Do(ctx, s.pool, func(ctx context.Context) ([]float32, error) {
		return embeddings.EmbedOne(ctx, s.embedder, text)
	})
}

func (s *Service) publish(ctx context.Context, res *IngestResult, took time.Duration) {
	event := eventstream.NewDocumentIngestedEvent(eventstream.DocumentMeta{
		ID:         res.ID,
		Filename:   res.Filename,
		Format:     res.Format,
		Characters: res.Characters,
	}, took)

	if err := s.publisher.PublishDocumentIngested(ctx, event); err != nil {
		s.logger.Warn("could not publish ingest event", "id", res.ID, "error", err)
	}
}

// Query answers req.Query from the single closest document. TopK is
// validated but retrieval always takes the best hit only.
func (s *Service) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	res, err := s.query(ctx, req)
	s.metrics.Query("query", outcome(err))
	if err != nil {
		s.logger.Warn("query failed", "query", req.Query, "error", err)
		return nil, err
	}

	s.logger.Debug("query answered", "query", req.Query, "document_id", res.DocumentID, "confidence", res.Confidence)
	return res, nil
}

func (s *Service) query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	hits, err := s.retrieve(ctx, req.Query, 1)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, ErrEmptyIndex
	}
	best := hits[0]

	start := time.Now()
	a, err := s.extractor.Extract(ctx, req.Query, best.Text)
	s.metrics.Stage(metrics.StageExtract, time.Since(start))
	if err != nil {
		return nil, err
	}
	if err := answer.Verify(best.Text, a); err != nil {
		return nil, err
	}

	return &QueryResult{
		Query:      req.Query,
		Answer:     a.Text,
		Confidence: a.Score,
		DocumentID: best.ID,
	}, nil
}

// QueryDocuments returns up to req.TopK documents ordered by ascending
// distance. An empty index yields no hits.
func (s *Service) QueryDocuments(ctx context.Context, req QueryRequest) ([]vector.QueryResult, error) {
	hits, err := s.queryDocuments(ctx, req)
	s.metrics.Query("query_doc", outcome(err))
	if err != nil {
		s.logger.Warn("document query failed", "query", req.Query, "error", err)
		return nil, err
	}
	return hits, nil
}

func (s *Service) queryDocuments(ctx context.Context, req QueryRequest) ([]vector.QueryResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	return s.retrieve(ctx, req.Query, req.TopK)
}

func (s *Service) retrieve(ctx context.Context, query string, topK int) ([]vector.QueryResult, error) {
	embedding, err := s.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	hits, err := s.driver.Query(ctx, embedding, topK)
	s.metrics.Stage(metrics.StageSearch, time.Since(start))
	return hits, err
}

// Health reports how many documents the index holds.
func (s *Service) Health(ctx context.Context) (int, error) {
	n, err := s.driver.Count(ctx)
	if err != nil {
		return 0, err
	}
	s.metrics.Documents(n)
	return n, nil
}

func validate(req QueryRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}
	if req.TopK < 1 {
		return fmt.Errorf("%w: top_k must be at least 1, got %d", ErrInvalidRequest, req.TopK)
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrInvalidRequest):
		return metrics.OutcomeInvalid
	case errors.Is(err, ErrEmptyIndex):
		return metrics.OutcomeEmptyIndex
	default:
		return metrics.OutcomeError
	}
}
