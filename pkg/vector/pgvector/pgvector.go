// Package pgvector provides a PostgreSQL vector driver using the pgvector
// extension.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/papercomputeco/fastrag/pkg/vector"
)

// DefaultTable is the table documents are stored in.
const DefaultTable = "documents"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Driver implements vector.Driver on PostgreSQL with pgvector.
//
// Distances are cosine distances. Every row carries a sequence number
// assigned on first insertion, and equal distances are returned in that
// order.
type Driver struct {
	pool       *pgxpool.Pool
	table      string
	dimensions uint
	logger     *slog.Logger
}

// Config holds configuration for the pgvector driver.
type Config struct {
	// DSN is the PostgreSQL connection string.
	DSN string

	// Table defaults to DefaultTable.
	Table string

	// Dimensions is the vector column size.
	Dimensions uint
}

// NewDriver connects to PostgreSQL and creates the extension and table if
// they do not exist.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if err := validate(&c); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pool, err := pgxpool.New(ctx, c.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to postgres: %v", vector.ErrConnection, err)
	}

	d := &Driver{
		pool:       pool,
		table:      pgx.Identifier{c.Table}.Sanitize(),
		dimensions: c.Dimensions,
		logger:     logger,
	}

	if err := d.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to pgvector", "table", c.Table, "dimensions", c.Dimensions)
	return d, nil
}

func validate(c *Config) error {
	if c.DSN == "" {
		return fmt.Errorf("%w: postgres DSN is required", vector.ErrConnection)
	}
	if c.Dimensions == 0 {
		return fmt.Errorf("%w: pgvector embedding dimensions cannot be 0, must be configured", vector.ErrConnection)
	}
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if !tableName.MatchString(c.Table) {
		return fmt.Errorf("%w: invalid table name %q", vector.ErrConnection, c.Table)
	}
	return nil
}

func (d *Driver) ensureSchema(ctx context.Context) error {
	if _, err := d.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("%w: enabling vector extension: %v", vector.ErrConnection, err)
	}

	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		metadata JSONB,
		embedding vector(%d) NOT NULL
	)`, d.table, d.dimensions)
	if _, err := d.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("%w: creating table: %v", vector.ErrConnection, err)
	}
	return nil
}

// Add upserts documents in one transaction.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) (err error) {
	if len(docs) == 0 {
		return nil
	}
	if err := vector.CheckDimensions(docs, d.dimensions); err != nil {
		return err
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", vector.ErrStore, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				d.logger.Warn("pgvector rollback failed", "error", rbErr)
			}
		}
	}()

	stmt := fmt.Sprintf(`INSERT INTO %s (id, content, metadata, embedding)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
	content = excluded.content,
	metadata = excluded.metadata,
	embedding = excluded.embedding`, d.table)

	for _, doc := range docs {
		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("%w: marshaling metadata for %s: %v", vector.ErrStore, doc.ID, err)
		}
		if _, err := tx.Exec(ctx, stmt, doc.ID, doc.Text, meta, pgv.NewVector(doc.Embedding)); err != nil {
			return fmt.Errorf("%w: upserting %s: %v", vector.ErrStore, doc.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing: %v", vector.ErrStore, err)
	}

	d.logger.Debug("added documents to pgvector", "count", len(docs))
	return nil
}

// Query finds the topK nearest documents by cosine distance.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		return []vector.QueryResult{}, nil
	}
	if uint(len(embedding)) != d.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, store expects %d",
			vector.ErrDimensionMismatch, len(embedding), d.dimensions)
	}

	q := fmt.Sprintf(`SELECT id, content, metadata, embedding::text, embedding <=> $1 AS distance
FROM %s
ORDER BY distance, seq
LIMIT $2`, d.table)

	rows, err := d.pool.Query(ctx, q, pgv.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("%w: querying: %v", vector.ErrStore, err)
	}
	defer rows.Close()

	results := make([]vector.QueryResult, 0, topK)
	for rows.Next() {
		var (
			r        vector.QueryResult
			distance float64
		)
		if err := scanDocument(rows, &r.Document, &distance); err != nil {
			return nil, err
		}
		r.Distance = float32(distance)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading rows: %v", vector.ErrStore, err)
	}
	return results, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return []vector.Document{}, nil
	}

	q := fmt.Sprintf(`SELECT id, content, metadata, embedding::text FROM %s WHERE id = ANY($1)`, d.table)
	rows, err := d.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: getting documents: %v", vector.ErrStore, err)
	}
	defer rows.Close()

	byID := make(map[string]vector.Document, len(ids))
	for rows.Next() {
		var doc vector.Document
		if err := scanDocument(rows, &doc); err != nil {
			return nil, err
		}
		byID[doc.ID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading rows: %v", vector.ErrStore, err)
	}

	docs := make([]vector.Document, 0, len(byID))
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, d.table)
	if _, err := d.pool.Exec(ctx, q, ids); err != nil {
		return fmt.Errorf("%w: deleting documents: %v", vector.ErrStore, err)
	}
	return nil
}

// Count returns the number of stored documents.
func (d *Driver) Count(ctx context.Context) (int, error) {
	var n int64
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, d.table)
	if err := d.pool.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting documents: %v", vector.ErrStore, err)
	}
	return int(n), nil
}

// Close closes the connection pool.
func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}

// scanDocument reads id, content, metadata and the text form of the
// embedding, followed by any extra destinations.
func scanDocument(rows pgx.Rows, doc *vector.Document, extra ...any) error {
	var (
		meta []byte
		emb  string
	)
	dest := append([]any{&doc.ID, &doc.Text, &meta, &emb}, extra...)
	if err := rows.Scan(dest...); err != nil {
		return fmt.Errorf("%w: scanning row: %v", vector.ErrStore, err)
	}

	if len(meta) > 0 && string(meta) != "null" {
		if err := json.Unmarshal(meta, &doc.Metadata); err != nil {
			return fmt.Errorf("%w: decoding metadata for %s: %v", vector.ErrStore, doc.ID, err)
		}
	}

	var v pgv.Vector
	if err := v.Parse(emb); err != nil {
		return fmt.Errorf("%w: decoding embedding for %s: %v", vector.ErrStore, doc.ID, err)
	}
	doc.Embedding = v.Slice()
	return nil
}
