// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/fastrag/pkg/vector"
)

// maxK is the largest k a vec0 KNN query accepts.
const maxK = 4096

// Driver implements vector.Driver using SQLite with sqlite-vec.
//
// Distances are L2. Documents keep the rowid of their first insertion, and
// equal distances are returned in rowid order.
type Driver struct {
	db         *sql.DB
	dimensions uint
	logger     *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("%w: database path is required", vector.ErrConnection)
	}

	if c.Dimensions == 0 {
		return nil, fmt.Errorf("%w: sqlite-vec embedding dimensions cannot be 0, must be configured", vector.ErrConnection)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if c.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(c.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("%w: creating database directory: %v", vector.ErrConnection, err)
		}
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", vector.ErrConnection, err)
	}

	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %v", vector.ErrConnection, err)
	}

	// vec0 virtual tables use integer rowids, so documents are kept in a
	// mapping table keyed by their string ID.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL UNIQUE,
			content TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}'
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating documents table: %v", vector.ErrConnection, err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d])`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating vec0 table: %v", vector.ErrConnection, err)
	}

	logger.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"dimensions", c.Dimensions,
		"vec_version", vecVersion,
	)

	return &Driver{
		db:         db,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

func encodeMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeMetadata(s string) map[string]string {
	m := map[string]string{}
	if s == "" {
		return m
	}
	_ = json.Unmarshal([]byte(s), &m)
	return m
}

// Add stores documents with their embeddings in one transaction.
// If a document with the same ID already exists, it is updated in place.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	if err := vector.CheckDimensions(docs, d.dimensions); err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", vector.ErrStore, err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		if err := d.upsert(ctx, tx, doc); err != nil {
			return fmt.Errorf("%w: %v", vector.ErrStore, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", vector.ErrStore, err)
	}

	d.logger.Debug("added documents to sqlite-vec",
		"count", len(docs),
	)

	return nil
}

func (d *Driver) upsert(ctx context.Context, tx *sql.Tx, doc vector.Document) error {
	embBlob := serializeFloat32(doc.Embedding)

	meta, err := encodeMetadata(doc.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata for doc %s: %w", doc.ID, err)
	}

	var existingRowID int64
	err = tx.QueryRowContext(ctx,
		`SELECT rowid FROM vec_documents WHERE doc_id = ?`, doc.ID,
	).Scan(&existingRowID)

	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx,
			`UPDATE vec_documents SET content = ?, metadata = ? WHERE rowid = ?`,
			doc.Text, meta, existingRowID,
		); err != nil {
			return fmt.Errorf("updating document %s: %w", doc.ID, err)
		}

		// vec0 does not support UPDATE
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM vec_embeddings WHERE rowid = ?`, existingRowID,
		); err != nil {
			return fmt.Errorf("deleting old embedding for doc %s: %w", doc.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
			existingRowID, embBlob,
		); err != nil {
			return fmt.Errorf("re-inserting embedding for doc %s: %w", doc.ID, err)
		}

	case errors.Is(err, sql.ErrNoRows):
		result, err := tx.ExecContext(ctx,
			`INSERT INTO vec_documents(doc_id, content, metadata) VALUES (?, ?, ?)`,
			doc.ID, doc.Text, meta,
		)
		if err != nil {
			return fmt.Errorf("inserting document %s: %w", doc.ID, err)
		}

		rowID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting rowid for doc %s: %w", doc.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
			rowID, embBlob,
		); err != nil {
			return fmt.Errorf("inserting embedding for doc %s: %w", doc.ID, err)
		}

	default:
		return fmt.Errorf("checking for existing document %s: %w", doc.ID, err)
	}

	return nil
}

// Query finds the topK nearest documents to the given embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		return []vector.QueryResult{}, nil
	}
	topK = min(topK, maxK)

	if uint(len(embedding)) != d.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, store expects %d",
			vector.ErrDimensionMismatch, len(embedding), d.dimensions)
	}

	// vec0 accepts a single ORDER BY on distance, so the rowid tie-break
	// happens after the scan.
	rows, err := d.db.QueryContext(ctx, `
		SELECT
			d.doc_id,
			d.content,
			d.metadata,
			ve.rowid,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_documents d ON d.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, serializeFloat32(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("%w: querying vectors: %v", vector.ErrStore, err)
	}
	defer rows.Close()

	type hit struct {
		result vector.QueryResult
		rowID  int64
	}
	var hits []hit
	for rows.Next() {
		var (
			docID, content, meta string
			rowID                int64
			distance             float64
		)
		if err := rows.Scan(&docID, &content, &meta, &rowID, &distance); err != nil {
			return nil, fmt.Errorf("%w: scanning query result: %v", vector.ErrStore, err)
		}

		hits = append(hits, hit{
			result: vector.QueryResult{
				Document: vector.Document{
					ID:       docID,
					Text:     content,
					Metadata: decodeMetadata(meta),
				},
				Distance: float32(distance),
			},
			rowID: rowID,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating query results: %v", vector.ErrStore, err)
	}

	slices.SortStableFunc(hits, func(a, b hit) int {
		return cmp.Or(
			cmp.Compare(a.result.Distance, b.result.Distance),
			cmp.Compare(a.rowID, b.rowID),
		)
	})

	results := make([]vector.QueryResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, h.result)
	}

	d.logger.Debug("queried sqlite-vec",
		"results", len(results),
	)

	return results, nil
}

func placeholders(ids []string) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ","), args
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	inClause, args := placeholders(ids)
	query := fmt.Sprintf(`
		SELECT d.doc_id, d.content, d.metadata, d.rowid
		FROM vec_documents d
		WHERE d.doc_id IN (%s)
		ORDER BY d.rowid
	`, inClause)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying documents: %v", vector.ErrStore, err)
	}
	defer rows.Close()

	// Collect results first so we can close the rows cursor before
	// issuing additional queries (SQLite uses a single connection).
	type docRow struct {
		doc   vector.Document
		rowID int64
	}
	var docRows []docRow

	for rows.Next() {
		var (
			dr   docRow
			meta string
		)
		if err := rows.Scan(&dr.doc.ID, &dr.doc.Text, &meta, &dr.rowID); err != nil {
			return nil, fmt.Errorf("%w: scanning document: %v", vector.ErrStore, err)
		}
		dr.doc.Metadata = decodeMetadata(meta)
		docRows = append(docRows, dr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating documents: %v", vector.ErrStore, err)
	}
	rows.Close()

	docs := make([]vector.Document, 0, len(docRows))
	for _, dr := range docRows {
		var embBlob []byte
		err := d.db.QueryRowContext(ctx,
			`SELECT embedding FROM vec_embeddings WHERE rowid = ?`, dr.rowID,
		).Scan(&embBlob)
		if err == nil && len(embBlob) > 0 {
			dr.doc.Embedding, _ = deserializeFloat32(embBlob)
		}

		docs = append(docs, dr.doc)
	}

	return docs, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", vector.ErrStore, err)
	}
	defer tx.Rollback()

	inClause, args := placeholders(ids)

	rows, err := tx.QueryContext(ctx,
		fmt.Sprintf(`SELECT rowid FROM vec_documents WHERE doc_id IN (%s)`, inClause),
		args...,
	)
	if err != nil {
		return fmt.Errorf("%w: querying rowids for deletion: %v", vector.ErrStore, err)
	}

	var rowIDs []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return fmt.Errorf("%w: scanning rowid: %v", vector.ErrStore, err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: iterating rowids: %v", vector.ErrStore, err)
	}

	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM vec_embeddings WHERE rowid = ?`, rowID,
		); err != nil {
			return fmt.Errorf("%w: deleting embedding rowid %d: %v", vector.ErrStore, rowID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM vec_documents WHERE doc_id IN (%s)`, inClause),
		args...,
	); err != nil {
		return fmt.Errorf("%w: deleting documents: %v", vector.ErrStore, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", vector.ErrStore, err)
	}

	d.logger.Debug("deleted documents from sqlite-vec",
		"count", len(ids),
	)

	return nil
}

// Count returns the number of stored documents.
func (d *Driver) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vec_documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting documents: %v", vector.ErrStore, err)
	}
	return n, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ vector.Driver = (*Driver)(nil)
