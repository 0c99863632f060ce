package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/fastrag/pkg/rag"
	"github.com/papercomputeco/fastrag/pkg/vector"
)

const defaultTopK = 5

var (
	queryToolName    = "query"
	queryDescription = "Answer a question from the ingested documents. Returns a short span extracted verbatim from the closest document and a confidence in [0,1]."

	queryDocumentsToolName    = "query_documents"
	queryDocumentsDescription = "Retrieve the ingested documents closest to the query text, ordered by ascending distance."
)

// QueryInput represents the input arguments for the query tool.
type QueryInput struct {
	Query string `json:"query" jsonschema:"the question to answer"`
}

// QueryDocumentsInput represents the input arguments for the query_documents tool.
type QueryDocumentsInput struct {
	Query string `json:"query" jsonschema:"the text to find similar documents for"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of documents to return (default: 5)"`
}

// DocumentResult is a single retrieved document.
type DocumentResult struct {
	ID       string  `json:"id"`
	Filename string  `json:"filename,omitempty"`
	Distance float32 `json:"distance"`
	Text     string  `json:"text"`
}

// QueryDocumentsOutput represents the output of the query_documents tool.
type QueryDocumentsOutput struct {
	Query   string           `json:"query"`
	Results []DocumentResult `json:"results"`
	Count   int              `json:"count"`
}

// handleQuery processes a query request.
func (s *Server) handleQuery(ctx context.Context, _ *mcp.CallToolRequest, input QueryInput) (*mcp.CallToolResult, rag.QueryResult, error) {
	s.config.Logger.Debug("MCP query request", "query", input.Query)

	result, err := s.config.Service.Query(ctx, rag.QueryRequest{Query: input.Query, TopK: 1})
	if err != nil {
		return toolError("Failed to answer query", err), rag.QueryResult{}, nil
	}

	return structured(s, *result)
}

// handleQueryDocuments processes a document retrieval request.
func (s *Server) handleQueryDocuments(ctx context.Context, _ *mcp.CallToolRequest, input QueryDocumentsInput) (*mcp.CallToolResult, QueryDocumentsOutput, error) {
	topK := input.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	s.config.Logger.Debug("MCP query_documents request", "query", input.Query, "top_k", topK)

	hits, err := s.config.Service.QueryDocuments(ctx, rag.QueryRequest{Query: input.Query, TopK: topK})
	if err != nil {
		return toolError("Failed to query documents", err), QueryDocumentsOutput{}, nil
	}

	results := make([]DocumentResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, buildDocumentResult(hit))
	}

	return structured(s, QueryDocumentsOutput{
		Query:   input.Query,
		Results: results,
		Count:   len(results),
	})
}

func buildDocumentResult(hit vector.QueryResult) DocumentResult {
	return DocumentResult{
		ID:       hit.ID,
		Filename: hit.Metadata[rag.MetadataFilename],
		Distance: hit.Distance,
		Text:     hit.Text,
	}
}

// structured returns output both as structured content and, for clients
// that only read text blocks, as serialized JSON.
func structured[T any](s *Server, output T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		s.config.Logger.Error("failed to marshal tool output", "error", err)
		var zero T
		return toolError("Failed to serialize results", err), zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

func toolError(msg string, err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%s: %v", msg, err)},
		},
	}
}
