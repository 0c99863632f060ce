// Package vectorutils is the vector store utility package
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/fastrag/pkg/vector"
	"github.com/papercomputeco/fastrag/pkg/vector/chroma"
	"github.com/papercomputeco/fastrag/pkg/vector/inmemory"
	"github.com/papercomputeco/fastrag/pkg/vector/pgvector"
	"github.com/papercomputeco/fastrag/pkg/vector/qdrant"
	"github.com/papercomputeco/fastrag/pkg/vector/sqlitevec"
)

// Supported vector store providers.
const (
	ProviderSQLite   = "sqlite"
	ProviderChroma   = "chroma"
	ProviderQdrant   = "qdrant"
	ProviderPgvector = "pgvector"
	ProviderInMemory = "inmemory"
)

// Providers lists every supported vector store provider.
func Providers() []string {
	return []string{ProviderSQLite, ProviderChroma, ProviderQdrant, ProviderPgvector, ProviderInMemory}
}

type NewVectorDriverOpts struct {
	ProviderType string

	// TargetURL is the server URL for chroma and qdrant, or the DSN for pgvector.
	TargetURL string

	// Path is the database file for the sqlite provider.
	Path string

	// Collection names the collection (or table) documents live in.
	Collection string

	// APIKey is passed to providers that authenticate requests.
	APIKey string

	Dimensions uint
	Logger     *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case ProviderSQLite:
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.Path,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case ProviderChroma:
		return chroma.NewDriver(chroma.Config{
			URL:            o.TargetURL,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	case ProviderQdrant:
		return qdrant.NewDriver(ctx, qdrant.Config{
			URL:            o.TargetURL,
			APIKey:         o.APIKey,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	case ProviderPgvector:
		return pgvector.NewDriver(ctx, pgvector.Config{
			DSN:        o.TargetURL,
			Table:      o.Collection,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case ProviderInMemory:
		return inmemory.NewDriver(o.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
