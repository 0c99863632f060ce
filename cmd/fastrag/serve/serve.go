// Package servecmder provides the serve command that runs the FastRAG API
// server.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/fastrag/api"
	"github.com/papercomputeco/fastrag/pkg/config"
	"github.com/papercomputeco/fastrag/pkg/logger"
	"github.com/papercomputeco/fastrag/pkg/metrics"
)

type serveCommander struct {
	flags flagValues

	configDir string
	logFile   string
	logJSON   bool
	noMCP     bool
	noMetrics bool
	debug     bool

	cfg    *config.Config
	logger *slog.Logger
}

// flagValues receives the registered flags. The values that reach the
// server are read back through viper so env and config file apply too.
type flagValues struct {
	listen         string
	vectorProvider string
	vectorTarget   string
	vectorPath     string
	embedProvider  string
	embedTarget    string
	embedModel     string
	embedDims      uint
	answerProvider string
	answerTarget   string
	answerModel    string
	workers        uint
	eventsProvider string
	eventsTarget   string
}

const serveLongDesc string = `Run the FastRAG API server.

The server accepts document uploads on /ingest and answers questions on
/query and /query_doc. Prometheus metrics are served on /metrics and MCP
tools on /mcp.

Settings come from, in order of precedence: command line flags, FASTRAG_*
environment variables, the config.toml in the .fastrag/ directory, and
built-in defaults.

Examples:
  fastrag serve
  fastrag serve --listen :9000 --vector-store-provider qdrant --vector-store-target http://localhost:6334
  fastrag serve --embedding-provider hashing --vector-store-provider inmemory`

const serveShortDesc string = "Run the FastRAG API server"

var serveFlags = config.FlagSet{
	config.FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "api.listen",
		Description: "Address for the API server to listen on",
	},
	config.FlagVectorStoreProv: {
		Name:        "vector-store-provider",
		ViperKey:    "vector_store.provider",
		Description: "Vector store provider (sqlite, chroma, qdrant, pgvector, inmemory)",
	},
	config.FlagVectorStoreTgt: {
		Name:        "vector-store-target",
		ViperKey:    "vector_store.target",
		Description: "Vector store URL or DSN",
	},
	config.FlagVectorStorePath: {
		Name:        "vector-store-path",
		ViperKey:    "vector_store.path",
		Description: "Path to the sqlite-vec index (default: <config dir>/index.db)",
	},
	config.FlagEmbeddingProv: {
		Name:        "embedding-provider",
		ViperKey:    "embedding.provider",
		Description: "Embedding provider (ollama, openai, hashing)",
	},
	config.FlagEmbeddingTgt: {
		Name:        "embedding-target",
		ViperKey:    "embedding.target",
		Description: "Embedding provider URL",
	},
	config.FlagEmbeddingModel: {
		Name:        "embedding-model",
		ViperKey:    "embedding.model",
		Description: "Embedding model name",
	},
	config.FlagEmbeddingDims: {
		Name:        "embedding-dimensions",
		ViperKey:    "embedding.dimensions",
		Description: "Embedding vector dimensions",
	},
	config.FlagAnswerProv: {
		Name:        "answer-provider",
		ViperKey:    "answer.provider",
		Description: "Answer extraction provider (lexical, huggingface)",
	},
	config.FlagAnswerTgt: {
		Name:        "answer-target",
		ViperKey:    "answer.target",
		Description: "Answer extraction endpoint URL",
	},
	config.FlagAnswerModel: {
		Name:        "answer-model",
		ViperKey:    "answer.model",
		Description: "Answer extraction model name",
	},
	config.FlagWorkers: {
		Name:        "workers",
		Shorthand:   "w",
		ViperKey:    "worker.num_workers",
		Description: "Number of pipeline workers (default: GOMAXPROCS)",
	},
	config.FlagEventsProv: {
		Name:        "events-provider",
		ViperKey:    "events.provider",
		Description: "Ingest event publisher (nop, kafka)",
	},
	config.FlagEventsTgt: {
		Name:        "events-target",
		ViperKey:    "events.target",
		Description: "Comma separated Kafka brokers",
	},
}

var serveFlagKeys = []string{
	config.FlagListen,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagVectorStorePath,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagAnswerProv,
	config.FlagAnswerTgt,
	config.FlagAnswerModel,
	config.FlagWorkers,
	config.FlagEventsProv,
	config.FlagEventsTgt,
}

func NewServeCmd() *cobra.Command {
	return (&serveCommander{}).command()
}

func (c *serveCommander) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			c.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(c.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, serveFlags, serveFlagKeys)

			c.cfg, err = config.FromViper(v)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			c.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return c.run(cmd.Context())
		},
	}

	f := &c.flags
	config.AddStringFlag(cmd, serveFlags, config.FlagListen, &f.listen)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreProv, &f.vectorProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreTgt, &f.vectorTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStorePath, &f.vectorPath)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingProv, &f.embedProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingTgt, &f.embedTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingModel, &f.embedModel)
	config.AddUintFlag(cmd, serveFlags, config.FlagEmbeddingDims, &f.embedDims)
	config.AddStringFlag(cmd, serveFlags, config.FlagAnswerProv, &f.answerProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagAnswerTgt, &f.answerTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagAnswerModel, &f.answerModel)
	config.AddUintFlag(cmd, serveFlags, config.FlagWorkers, &f.workers)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsProv, &f.eventsProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsTgt, &f.eventsTarget)

	cmd.Flags().StringVar(&c.logFile, "log-file", "", "Also write JSON logs to this file")
	cmd.Flags().BoolVar(&c.logJSON, "log-json", false, "Write JSON logs to stdout instead of pretty text")
	cmd.Flags().BoolVar(&c.noMCP, "no-mcp", false, "Do not serve MCP tools on /mcp")
	cmd.Flags().BoolVar(&c.noMetrics, "no-metrics", false, "Do not serve Prometheus metrics on /metrics")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	closeLog, err := c.initLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	var m *metrics.Metrics
	if !c.noMetrics {
		m = metrics.New()
	}

	stack, err := newStack(ctx, c.cfg, c.configDir, m, c.logger)
	if err != nil {
		// The server never starts without a working store.
		c.logger.Error("could not start fastrag", "error", err)
		return err
	}
	defer stack.Close()

	server, err := api.NewServer(api.Config{
		ListenAddr: c.cfg.API.Listen,
		BodyLimit:  int(c.cfg.API.BodyLimitMB) * 1024 * 1024,
		Metrics:    m,
		DisableMCP: c.noMCP,
	}, stack.service, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}

// initLogger builds the process logger. With --log-file every record is
// also written as JSON to that file.
func (c *serveCommander) initLogger() (func(), error) {
	console := logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(!c.logJSON),
		logger.WithJSON(c.logJSON),
	)

	if c.logFile == "" {
		c.logger = console
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	c.logger = logger.Multi(console, logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	))

	return func() {
		if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			fmt.Fprintf(os.Stderr, "closing log file: %v\n", err)
		}
	}, nil
}
