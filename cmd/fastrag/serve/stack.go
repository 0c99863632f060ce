package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/fastrag/pkg/answer"
	answerutils "github.com/papercomputeco/fastrag/pkg/answer/utils"
	"github.com/papercomputeco/fastrag/pkg/config"
	"github.com/papercomputeco/fastrag/pkg/dotdir"
	"github.com/papercomputeco/fastrag/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/fastrag/pkg/embeddings/utils"
	"github.com/papercomputeco/fastrag/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/fastrag/pkg/eventstream/utils"
	"github.com/papercomputeco/fastrag/pkg/metrics"
	"github.com/papercomputeco/fastrag/pkg/parser"
	"github.com/papercomputeco/fastrag/pkg/rag"
	"github.com/papercomputeco/fastrag/pkg/vector"
	vectorutils "github.com/papercomputeco/fastrag/pkg/vector/utils"
	"github.com/papercomputeco/fastrag/pkg/worker"
)

// stack is every long lived collaborator of the server. It is built once at
// startup and shared by all requests.
type stack struct {
	embedder  embeddings.Embedder
	driver    vector.Driver
	extractor answer.Extractor
	publisher eventstream.Publisher
	pool      *worker.Pool
	service   *rag.Service
	logger    *slog.Logger
}

// newStack builds the pipeline from cfg. Any component that fails to come
// up aborts startup, and the parts already built are closed.
func newStack(ctx context.Context, cfg *config.Config, configDir string, m *metrics.Metrics, logger *slog.Logger) (_ *stack, err error) {
	s := &stack{logger: logger}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       cfg.Embedding.APIKey,
		Dimensions:   cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	s.embedder = embedder

	dims := cfg.Embedding.Dimensions
	if dims == 0 {
		dims = s.embedder.Dimensions()
	}

	path, err := indexPath(cfg, configDir)
	if err != nil {
		return nil, err
	}

	driver, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		TargetURL:    cfg.VectorStore.Target,
		Path:         path,
		Collection:   cfg.VectorStore.Collection,
		APIKey:       cfg.VectorStore.APIKey,
		Dimensions:   dims,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	s.driver = driver

	extractor, err := answerutils.NewExtractor(&answerutils.NewExtractorOpts{
		ProviderType: cfg.Answer.Provider,
		TargetURL:    cfg.Answer.Target,
		Model:        cfg.Answer.Model,
		APIKey:       cfg.Answer.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating answer extractor: %w", err)
	}
	s.extractor = extractor

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.Events.Provider,
		TargetURL:    cfg.Events.Target,
		Topic:        cfg.Events.Topic,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}
	s.publisher = publisher

	pool, err := worker.NewPool(&worker.Config{
		NumWorkers: cfg.Worker.NumWorkers,
		QueueSize:  cfg.Worker.QueueSize,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	s.pool = pool

	converter := parser.NewCommandConverter(cfg.Ingest.DocConverter)
	converter.TempDir = cfg.Ingest.TempDir

	s.service, err = rag.NewService(rag.Config{
		Embedder:  s.embedder,
		Driver:    s.driver,
		Extractor: s.extractor,
		Parser:    parser.New(&parser.Config{Converter: converter, Logger: logger}),
		Pool:      s.pool,
		Publisher: s.publisher,
		Metrics:   m,
		TempDir:   cfg.Ingest.TempDir,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating rag service: %w", err)
	}

	logger.Info("pipeline ready",
		"vector_store", cfg.VectorStore.Provider,
		"embedding", cfg.Embedding.Provider,
		"answer", cfg.Answer.Provider,
		"events", cfg.Events.Provider,
		"workers", s.pool.Size(),
		"dimensions", dims,
	)
	return s, nil
}

// indexPath is the sqlite-vec file used when the store is sqlite and no path
// was configured.
func indexPath(cfg *config.Config, configDir string) (string, error) {
	if cfg.VectorStore.Path != "" || cfg.VectorStore.Provider != vectorutils.ProviderSQLite {
		return cfg.VectorStore.Path, nil
	}

	dir, err := dotdir.NewManager().Resolve(configDir)
	if err != nil {
		return "", fmt.Errorf("resolving index directory: %w", err)
	}
	return dotdir.IndexPath(dir), nil
}

// Close releases every component that was built. The pool is drained first
// so no job is left holding the store.
func (s *stack) Close() {
	if s.pool != nil {
		s.pool.Close()
	}

	var errs []error
	if s.publisher != nil {
		errs = append(errs, s.publisher.Close())
	}
	if s.extractor != nil {
		errs = append(errs, s.extractor.Close())
	}
	if s.driver != nil {
		errs = append(errs, s.driver.Close())
	}
	if s.embedder != nil {
		errs = append(errs, s.embedder.Close())
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("error closing pipeline", "error", err)
	}
}
