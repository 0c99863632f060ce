// Package qdrant provides a Qdrant vector database driver over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	qd "github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/fastrag/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for storing documents.
	DefaultCollectionName = "documents"

	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	payloadDocID    = "doc_id"
	payloadText     = "text"
	payloadMetadata = "metadata"
)

// Driver implements vector.Driver using Qdrant.
//
// The collection uses cosine similarity and distances are reported as
// 1 - score. Qdrant point IDs must be UUIDs, so each document ID is mapped
// to a name-based UUID and the original ID travels in the payload.
type Driver struct {
	client     *qd.Client
	collection string
	dimensions uint
	logger     *slog.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// URL is the Qdrant gRPC endpoint, e.g. "http://localhost:6334".
	// A scheme of "https" enables TLS.
	URL string

	// APIKey is sent with every request when set.
	APIKey string

	// CollectionName defaults to DefaultCollectionName.
	CollectionName string

	// Dimensions is the vector size the collection is created with.
	Dimensions uint
}

// NewDriver connects to Qdrant and creates the collection if it is missing.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("%w: qdrant embedding dimensions cannot be 0, must be configured", vector.ErrConnection)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	qc, err := clientConfig(c)
	if err != nil {
		return nil, err
	}

	collection := c.CollectionName
	if collection == "" {
		collection = DefaultCollectionName
	}

	client, err := qd.NewClient(qc)
	if err != nil {
		return nil, fmt.Errorf("%w: creating qdrant client: %v", vector.ErrConnection, err)
	}

	d := &Driver{
		client:     client,
		collection: collection,
		dimensions: c.Dimensions,
		logger:     logger,
	}

	if err := d.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("connected to qdrant",
		"host", qc.Host,
		"port", qc.Port,
		"collection", collection,
	)
	return d, nil
}

// clientConfig turns the driver config into a qdrant client config.
func clientConfig(c Config) (*qd.Config, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("%w: qdrant URL is required", vector.ErrConnection)
	}

	u, err := url.Parse(c.URL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: invalid qdrant URL %q", vector.ErrConnection, c.URL)
	}

	port := DefaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid qdrant port %q", vector.ErrConnection, p)
		}
	}

	return &qd.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: u.Scheme == "https",
	}, nil
}

func (d *Driver) ensureCollection(ctx context.Context) error {
	exists, err := d.client.CollectionExists(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection %s: %v", vector.ErrConnection, d.collection, err)
	}
	if exists {
		return nil
	}

	err = d.client.CreateCollection(ctx, &qd.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: qd.NewVectorsConfig(&qd.VectorParams{
			Size:     uint64(d.dimensions),
			Distance: qd.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: creating collection %s: %v", vector.ErrConnection, d.collection, err)
	}

	d.logger.Info("created qdrant collection", "collection", d.collection, "dimensions", d.dimensions)
	return nil
}

// Add upserts documents as a single batch.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := vector.CheckDimensions(docs, d.dimensions); err != nil {
		return err
	}

	points := make([]*qd.PointStruct, 0, len(docs))
	for _, doc := range docs {
		points = append(points, &qd.PointStruct{
			Id:      pointID(doc.ID),
			Vectors: qd.NewVectorsDense(doc.Embedding),
			Payload: toPayload(doc),
		})
	}

	_, err := d.client.Upsert(ctx, &qd.UpsertPoints{
		CollectionName: d.collection,
		Wait:           qd.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: upserting %d points: %v", vector.ErrStore, len(points), err)
	}

	d.logger.Debug("added documents to qdrant", "count", len(docs))
	return nil
}

// Query finds the topK nearest documents.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		return []vector.QueryResult{}, nil
	}
	if uint(len(embedding)) != d.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, store expects %d",
			vector.ErrDimensionMismatch, len(embedding), d.dimensions)
	}

	points, err := d.client.Query(ctx, &qd.QueryPoints{
		CollectionName: d.collection,
		Query:          qd.NewQueryDense(embedding),
		Limit:          qd.PtrOf(uint64(topK)),
		WithPayload:    qd.NewWithPayload(true),
		WithVectors:    qd.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: querying: %v", vector.ErrStore, err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, p := range points {
		results = append(results, vector.QueryResult{
			Document: fromPayload(p.GetPayload(), denseVector(p.GetVectors())),
			Distance: 1 - p.GetScore(),
		})
	}
	vector.SortResults(results)
	return results, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return []vector.Document{}, nil
	}

	points, err := d.client.Get(ctx, &qd.GetPoints{
		CollectionName: d.collection,
		Ids:            pointIDs(ids),
		WithPayload:    qd.NewWithPayload(true),
		WithVectors:    qd.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: getting documents: %v", vector.ErrStore, err)
	}

	byID := make(map[string]vector.Document, len(points))
	for _, p := range points {
		doc := fromPayload(p.GetPayload(), denseVector(p.GetVectors()))
		byID[doc.ID] = doc
	}

	docs := make([]vector.Document, 0, len(points))
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

	_, err := d.client.Delete(ctx, &qd.DeletePoints{
		CollectionName: d.collection,
		Wait:           qd.PtrOf(true),
		Points:         qd.NewPointsSelectorIDs(pointIDs(ids)),
	})
	if err != nil {
		return fmt.Errorf("%w: deleting documents: %v", vector.ErrStore, err)
	}
	return nil
}

// Count returns the exact number of points in the collection.
func (d *Driver) Count(ctx context.Context) (int, error) {
	n, err := d.client.Count(ctx, &qd.CountPoints{
		CollectionName: d.collection,
		Exact:          qd.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: counting documents: %v", vector.ErrStore, err)
	}
	return int(n), nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

func pointID(id string) *qd.PointId {
	return qd.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String())
}

func pointIDs(ids []string) []*qd.PointId {
	out := make([]*qd.PointId, 0, len(ids))
	for _, id := range ids {
		out = append(out, pointID(id))
	}
	return out
}

func toPayload(doc vector.Document) map[string]*qd.Value {
	meta := make(map[string]any, len(doc.Metadata))
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	return qd.NewValueMap(map[string]any{
		payloadDocID:    doc.ID,
		payloadText:     doc.Text,
		payloadMetadata: meta,
	})
}

func fromPayload(payload map[string]*qd.Value, embedding []float32) vector.Document {
	doc := vector.Document{
		ID:        payload[payloadDocID].GetStringValue(),
		Text:      payload[payloadText].GetStringValue(),
		Embedding: embedding,
	}
	if fields := payload[payloadMetadata].GetStructValue().GetFields(); len(fields) > 0 {
		doc.Metadata = make(map[string]string, len(fields))
		for k, v := range fields {
			doc.Metadata[k] = v.GetStringValue()
		}
	}
	return doc
}

func denseVector(v *qd.VectorsOutput) []float32 {
	out := v.GetVector()
	if dense := out.GetDense(); dense != nil {
		return dense.GetData()
	}
	return out.GetData()
}
