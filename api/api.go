package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/fastrag/api/mcp"
	"github.com/papercomputeco/fastrag/pkg/rag"
)

// Server is the API server for ingesting documents and answering questions.
type Server struct {
	config  Config
	service *rag.Service
	logger  *slog.Logger
	app     *fiber.App
}

// NewServer creates a new API server.
// The service is injected so it can be shared with other components and
// replaced with test doubles.
func NewServer(config Config, service *rag.Service, logger *slog.Logger) (*Server, error) {
	if service == nil {
		return nil, errors.New("rag service is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             config.BodyLimit,
		ErrorHandler:          errorHandler(logger),
	})

	s := &Server{
		config:  config,
		service: service,
		logger:  logger,
		app:     app,
	}

	app.Use(requestLogger(logger))

	app.Get("/", s.handleRoot)
	app.Post("/ingest", s.handleIngest)
	app.Get("/query", s.handleQuery)
	app.Get("/query_doc", s.handleQueryDoc)
	app.Get("/check-health", s.handleCheckHealth)
	app.Get("/db-health", s.handleDBHealth)

	if config.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(config.Metrics.Handler()))
	}

	if !config.DisableMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Service: service,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
