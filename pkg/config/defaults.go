package config

const (
	defaultAPIListen   = ":8000"
	defaultBodyLimitMB = 50

	defaultDocConverter = "antiword"

	defaultClientAPITarget = "http://localhost:8000"

	defaultVectorProvider   = "sqlite"
	defaultVectorCollection = "documents"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "all-minilm"
	defaultEmbeddingDimensions = 384

	defaultAnswerProvider = "lexical"

	defaultQueueSize = 256

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "fastrag.documents"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen:      defaultAPIListen,
			BodyLimitMB: defaultBodyLimitMB,
		},
		Ingest: IngestConfig{
			DocConverter: defaultDocConverter,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Answer: AnswerConfig{
			Provider: defaultAnswerProvider,
		},
		Worker: WorkerConfig{
			QueueSize: defaultQueueSize,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
	}
}
