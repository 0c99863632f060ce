package api

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/fastrag/pkg/parser"
	"github.com/papercomputeco/fastrag/pkg/rag"
)

const (
	detailUnsupported  = "Unsupported file type"
	detailFileRequired = "file is required"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ingestError maps an ingest failure to a status and reply.
func ingestError(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, parser.ErrUnsupportedFormat):
		return fiber.StatusBadRequest, ErrorResponse{Detail: detailUnsupported}
	case errors.Is(err, rag.ErrInvalidRequest):
		return fiber.StatusBadRequest, ErrorResponse{Detail: err.Error()}
	default:
		return fiber.StatusInternalServerError, ErrorResponse{Detail: "Error during ingestion: " + err.Error()}
	}
}

// queryError maps a query failure to a status and reply.
func queryError(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, rag.ErrInvalidRequest):
		return fiber.StatusBadRequest, ErrorResponse{Detail: err.Error()}
	case errors.Is(err, rag.ErrEmptyIndex):
		return fiber.StatusNotFound, ErrorResponse{Detail: rag.ErrEmptyIndex.Error()}
	default:
		return fiber.StatusInternalServerError, ErrorResponse{Detail: "Error during querying: " + err.Error()}
	}
}

// errorHandler replies to errors raised by fiber itself, such as unknown
// routes or oversized bodies, in the same shape as handler errors.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("unhandled request error", "path", c.Path(), "error", err)
		}
		return c.Status(code).JSON(ErrorResponse{Detail: err.Error()})
	}
}

func errInvalidTopK(raw string) error {
	return fmt.Errorf("%w: top_k must be an integer, got %q", rag.ErrInvalidRequest, raw)
}
