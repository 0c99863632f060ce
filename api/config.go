// Package api provides the FastRAG HTTP API server.
package api

import "github.com/papercomputeco/fastrag/pkg/metrics"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string

	// BodyLimit caps request bodies in bytes. Zero uses fiber's default.
	BodyLimit int

	// Metrics enables GET /metrics when set.
	Metrics *metrics.Metrics

	// DisableMCP leaves /mcp unmounted.
	DisableMCP bool
}
