package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent fastrag configuration stored as config.toml
// in the .fastrag/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	API         APIConfig         `toml:"api"`
	Ingest      IngestConfig      `toml:"ingest"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Answer      AnswerConfig      `toml:"answer"`
	Worker      WorkerConfig      `toml:"worker"`
	Events      EventsConfig      `toml:"events"`
	Client      ClientConfig      `toml:"client"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`

	// BodyLimitMB caps request bodies, uploads included.
	BodyLimitMB uint `toml:"body_limit,omitempty"`
}

// IngestConfig holds document ingestion settings.
type IngestConfig struct {
	// TempDir holds uploads while they are parsed. Empty uses the OS temp dir.
	TempDir string `toml:"temp_dir,omitempty"`

	// DocConverter is the command that turns a legacy .doc file into text.
	DocConverter string `toml:"doc_converter,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to the running
// API server (e.g. fastrag ingest, fastrag query).
// Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`

	// Target is the server URL for chroma and qdrant or the DSN for pgvector.
	Target string `toml:"target,omitempty"`

	// Path is the sqlite-vec database file. Empty uses index.db in the
	// .fastrag/ directory.
	Path       string `toml:"path,omitempty"`
	Collection string `toml:"collection,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
}

// AnswerConfig holds answer extraction settings.
type AnswerConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`
}

// WorkerConfig sizes the pool that runs parsing and embedding.
type WorkerConfig struct {
	// NumWorkers of 0 uses GOMAXPROCS.
	NumWorkers uint `toml:"num_workers,omitempty"`
	QueueSize  uint `toml:"queue_size,omitempty"`
}

// EventsConfig holds ingestion event publishing settings.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`

	// Target is a comma separated broker list for kafka.
	Target string `toml:"target,omitempty"`
	Topic  string `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error

	// numeric keys are registered with viper as uint defaults.
	numeric bool
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		numeric: true,
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"api.listen":     stringKey(func(c *Config) *string { return &c.API.Listen }),
	"api.body_limit": uintKey("api.body_limit", func(c *Config) *uint { return &c.API.BodyLimitMB }),

	"ingest.temp_dir":      stringKey(func(c *Config) *string { return &c.Ingest.TempDir }),
	"ingest.doc_converter": stringKey(func(c *Config) *string { return &c.Ingest.DocConverter }),

	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.path":       stringKey(func(c *Config) *string { return &c.VectorStore.Path }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),
	"vector_store.api_key":    stringKey(func(c *Config) *string { return &c.VectorStore.APIKey }),

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),
	"embedding.api_key":    stringKey(func(c *Config) *string { return &c.Embedding.APIKey }),

	"answer.provider": stringKey(func(c *Config) *string { return &c.Answer.Provider }),
	"answer.target":   stringKey(func(c *Config) *string { return &c.Answer.Target }),
	"answer.model":    stringKey(func(c *Config) *string { return &c.Answer.Model }),
	"answer.api_key":  stringKey(func(c *Config) *string { return &c.Answer.APIKey }),

	"worker.num_workers": uintKey("worker.num_workers", func(c *Config) *uint { return &c.Worker.NumWorkers }),
	"worker.queue_size":  uintKey("worker.queue_size", func(c *Config) *uint { return &c.Worker.QueueSize }),

	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.target":   stringKey(func(c *Config) *string { return &c.Events.Target }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),

	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),
}

// orderedKeys lists configKeys in TOML section order.
var orderedKeys = []string{
	"api.listen",
	"api.body_limit",
	"ingest.temp_dir",
	"ingest.doc_converter",
	"vector_store.provider",
	"vector_store.target",
	"vector_store.path",
	"vector_store.collection",
	"vector_store.api_key",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"embedding.api_key",
	"answer.provider",
	"answer.target",
	"answer.model",
	"answer.api_key",
	"worker.num_workers",
	"worker.queue_size",
	"events.provider",
	"events.target",
	"events.topic",
	"client.api_target",
}
