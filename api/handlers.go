package api

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/fastrag/pkg/rag"
	"github.com/papercomputeco/fastrag/pkg/utils"
)

const (
	defaultQueryTopK    = 1
	defaultQueryDocTopK = 5
)

// MessageResponse is a plain informational reply.
type MessageResponse struct {
	Message string `json:"message"`
}

// IngestResponse is returned after a document is stored.
type IngestResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// QueryResponse is the extracted answer for a question.
type QueryResponse struct {
	Query      string  `json:"query"`
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}

// QueryDocResponse mirrors the column layout of a batched store query:
// one inner list per query, and a single query per request.
type QueryDocResponse struct {
	Results QueryDocResults `json:"results"`
}

// QueryDocResults holds parallel lists of ids, texts and distances.
type QueryDocResults struct {
	IDs       [][]string  `json:"ids"`
	Documents [][]string  `json:"documents"`
	Distances [][]float32 `json:"distances"`
}

// DBHealthResponse reports store reachability. It is sent with 200 either way.
type DBHealthResponse struct {
	Status        string `json:"status"`
	DocumentCount *int   `json:"document_count,omitempty"`
	Error         string `json:"error,omitempty"`
}

// requestContext detaches the pipeline from the client connection so a
// disconnect does not abort a started ingest or query.
func requestContext(c *fiber.Ctx) context.Context {
	return context.WithoutCancel(c.UserContext())
}

// handleRoot returns the welcome message.
func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(MessageResponse{Message: "Welcome to the FastRAG API server!"})
}

// handleIngest stores the multipart "file" upload.
func (s *Server) handleIngest(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Detail: detailFileRequired})
	}

	f, err := fh.Open()
	if err != nil {
		status, body := ingestError(err)
		return c.Status(status).JSON(body)
	}
	defer f.Close()

	res, err := s.service.Ingest(requestContext(c), rag.IngestRequest{
		Filename: fh.Filename,
		Content:  f,
	})
	if err != nil {
		status, body := ingestError(err)
		return c.Status(status).JSON(body)
	}

	return c.JSON(IngestResponse{
		Status: "Document ingested successfully",
		ID:     res.ID,
	})
}

// handleQuery answers the query parameter from the closest document.
// Query parameters:
//   - query (required): the question
//   - top_k (optional, default 1): validated, retrieval uses the best hit
func (s *Server) handleQuery(c *fiber.Ctx) error {
	req, err := queryRequest(c, defaultQueryTopK)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Detail: err.Error()})
	}

	res, err := s.service.Query(requestContext(c), req)
	if err != nil {
		status, body := queryError(err)
		return c.Status(status).JSON(body)
	}

	s.logger.Debug("answered query",
		"query", utils.Truncate(req.Query, 80),
		"document_id", res.DocumentID,
		"confidence", res.Confidence,
	)
	return c.JSON(QueryResponse{
		Query:      res.Query,
		Answer:     res.Answer,
		Confidence: res.Confidence,
	})
}

// handleQueryDoc returns the closest documents without extracting an answer.
// Query parameters:
//   - query (required): the search text
//   - top_k (optional, default 5): number of documents to return
func (s *Server) handleQueryDoc(c *fiber.Ctx) error {
	req, err := queryRequest(c, defaultQueryDocTopK)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Detail: err.Error()})
	}

	hits, err := s.service.QueryDocuments(requestContext(c), req)
	if err != nil {
		status, body := queryError(err)
		return c.Status(status).JSON(body)
	}

	ids := make([]string, 0, len(hits))
	docs := make([]string, 0, len(hits))
	distances := make([]float32, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.ID)
		docs = append(docs, hit.Text)
		distances = append(distances, hit.Distance)
	}

	return c.JSON(QueryDocResponse{
		Results: QueryDocResults{
			IDs:       [][]string{ids},
			Documents: [][]string{docs},
			Distances: [][]float32{distances},
		},
	})
}

// handleCheckHealth reports that the process is serving requests.
func (s *Server) handleCheckHealth(c *fiber.Ctx) error {
	return c.JSON(MessageResponse{Message: "API Healthy!"})
}

// handleDBHealth reports whether the vector store answers and how many
// documents it holds.
func (s *Server) handleDBHealth(c *fiber.Ctx) error {
	n, err := s.service.Health(requestContext(c))
	if err != nil {
		s.logger.Warn("database health check failed", "error", err)
		return c.JSON(DBHealthResponse{
			Status: "Database connection failed",
			Error:  err.Error(),
		})
	}

	return c.JSON(DBHealthResponse{
		Status:        "Database is connected",
		DocumentCount: &n,
	})
}

func queryRequest(c *fiber.Ctx, defaultTopK int) (rag.QueryRequest, error) {
	req := rag.QueryRequest{
		Query: c.Query("query"),
		TopK:  defaultTopK,
	}

	if raw := c.Query("top_k"); raw != "" {
		topK, err := strconv.Atoi(raw)
		if err != nil {
			return req, errInvalidTopK(raw)
		}
		req.TopK = topK
	}
	return req, nil
}
