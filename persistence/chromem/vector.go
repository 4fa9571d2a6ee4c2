package chromem

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/flarexio/docrag/fault"
	"github.com/flarexio/docrag/vector"
)

var errEmbeddingDisabled = errors.New("chromem collections only accept precomputed embeddings")

var _ vector.Backend = (*chromemBackend)(nil)

// NewChromemBackend serves collections from an embedded chromem-go database.
// Only cosine similarity is available.
func NewChromemBackend(cfg vector.ChromemConfig) (vector.Backend, error) {
	var db *chromem.DB
	if !cfg.Persistent {
		db = chromem.NewDB()
	} else {
		d, err := chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, err
		}

		db = d
	}

	return &chromemBackend{
		db:         db,
		dimensions: make(map[string]int),
	}, nil
}

type chromemBackend struct {
	db *chromem.DB

	// chromem keeps collection metadata private, so the dimension given at
	// creation is tracked here. Collections reopened from disk start unknown
	// and learn it from their stored documents.
	dimensions map[string]int
	mu         sync.Mutex
}

func disabledEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errEmbeddingDisabled
}

// dimension returns the embedding dimension of the collection. An unknown
// dimension of a non-empty collection is learned by querying the stored
// documents with sample, which fails when sample has a different length.
func (b *chromemBackend) dimension(ctx context.Context, name string, c *chromem.Collection, sample []float32) (int, error) {
	b.mu.Lock()
	dimension := b.dimensions[name]
	b.mu.Unlock()

	if dimension > 0 || len(sample) == 0 || c.Count() == 0 {
		return dimension, nil
	}

	results, err := c.QueryEmbedding(ctx, sample, 1, nil, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}

		return 0, fmt.Errorf("%w: collection %s does not hold %d-dimensional vectors: %w",
			fault.ErrVectorShape, name, len(sample), err)
	}

	if len(results) == 0 {
		return 0, nil
	}

	dimension = len(results[0].Embedding)

	b.mu.Lock()
	b.dimensions[name] = dimension
	b.mu.Unlock()

	return dimension, nil
}

func (b *chromemBackend) Describe(ctx context.Context, name string) (vector.CollectionInfo, error) {
	c := b.db.GetCollection(name, disabledEmbedding)
	if c == nil {
		return vector.CollectionInfo{}, fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}

	b.mu.Lock()
	dimension := b.dimensions[name]
	b.mu.Unlock()

	return vector.CollectionInfo{
		Name:      name,
		Dimension: dimension,
		Metric:    vector.MetricCosine,
		Points:    c.Count(),
	}, nil
}

func (b *chromemBackend) Create(ctx context.Context, name string, dimension int, metric vector.Metric) error {
	if metric != vector.MetricCosine {
		return fmt.Errorf("%w: chromem only supports %s similarity", fault.ErrConfiguration, vector.MetricCosine)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if c := b.db.GetCollection(name, disabledEmbedding); c != nil {
		return fmt.Errorf("%w: %s", vector.ErrCollectionExists, name)
	}

	metadata := map[string]string{
		"dimension": strconv.Itoa(dimension),
	}

	if _, err := b.db.CreateCollection(name, metadata, disabledEmbedding); err != nil {
		return err
	}

	b.dimensions[name] = dimension
	return nil
}

func (b *chromemBackend) Upsert(ctx context.Context, name string, records []vector.Record) error {
	c := b.db.GetCollection(name, disabledEmbedding)
	if c == nil {
		return fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}

	if len(records) == 0 {
		return nil
	}

	dimension, err := b.dimension(ctx, name, c, records[0].Vector)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		if dimension > 0 && len(r.Vector) != dimension {
			return &vector.ShapeError{
				PointID: r.ID.String(),
				Got:     len(r.Vector),
				Want:    dimension,
			}
		}

		docs[i] = chromem.Document{
			ID:        r.ID.String(),
			Metadata:  encodePayload(r.Payload),
			Embedding: r.Vector,
			Content:   r.Payload.Text,
		}
	}

	return c.AddDocuments(ctx, docs, runtime.NumCPU())
}

func (b *chromemBackend) Search(ctx context.Context, name string, vec []float32, limit int) ([]vector.Hit, error) {
	c := b.db.GetCollection(name, disabledEmbedding)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}

	if limit > c.Count() {
		limit = c.Count()
	}

	if limit == 0 {
		return []vector.Hit{}, nil
	}

	dimension, err := b.dimension(ctx, name, c, vec)
	if err != nil {
		return nil, err
	}

	if dimension > 0 && len(vec) != dimension {
		return nil, &vector.ShapeError{Got: len(vec), Want: dimension}
	}

	results, err := c.QueryEmbedding(ctx, vec, limit, nil, nil)
	if err != nil {
		return nil, err
	}

	hits := make([]vector.Hit, len(results))
	for i, result := range results {
		payload := decodePayload(result.Metadata)
		payload.Text = result.Content

		hits[i] = vector.Hit{
			ID:      result.ID,
			Score:   result.Similarity,
			Payload: payload,
		}
	}

	return hits, nil
}

func encodePayload(p vector.Payload) map[string]string {
	return map[string]string{
		"file_id":  p.FileID,
		"chunk_id": p.ChunkID,
		"index":    strconv.Itoa(p.Index),
	}
}

func decodePayload(metadata map[string]string) vector.Payload {
	index, _ := strconv.Atoi(metadata["index"])

	return vector.Payload{
		FileID:  metadata["file_id"],
		ChunkID: metadata["chunk_id"],
		Index:   index,
	}
}
