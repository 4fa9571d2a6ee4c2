package vector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/flarexio/docrag/fault"
)

// DB hands out one Collection per name over a shared backend.
type DB struct {
	backend Backend
	metric  Metric

	collections map[string]*Collection
	mu          sync.Mutex
}

func NewDB(backend Backend, metric Metric) *DB {
	if metric == "" {
		metric = MetricCosine
	}

	return &DB{
		backend:     backend,
		metric:      metric,
		collections: make(map[string]*Collection),
	}
}

// Collection returns the handle for name, creating the handle (not the
// remote collection) on first use. The dimension only matters when the
// remote collection has to be created.
func (db *DB) Collection(name string, dimension int) (*Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: collection name is empty", fault.ErrConfiguration)
	}

	if dimension <= 0 {
		return nil, fmt.Errorf("%w: invalid dimension %d", fault.ErrConfiguration, dimension)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	c, ok := db.collections[name]
	if !ok {
		c = NewCollection(db.backend, name, dimension, db.metric)
		db.collections[name] = c
	}

	return c, nil
}

// Collection manages a single named collection: lazy creation, point
// validation and similarity search.
type Collection struct {
	backend   Backend
	name      string
	dimension int
	metric    Metric

	info *CollectionInfo
	mu   sync.RWMutex
}

func NewCollection(backend Backend, name string, dimension int, metric Metric) *Collection {
	if metric == "" {
		metric = MetricCosine
	}

	return &Collection{
		backend:   backend,
		name:      name,
		dimension: dimension,
		metric:    metric,
	}
}

func (c *Collection) Name() string {
	return c.name
}

// Dimension is the dimension reported by the backend once the collection is
// ensured, and the requested one before that.
func (c *Collection) Dimension() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.info != nil {
		return c.info.Dimension
	}

	return c.dimension
}

func (c *Collection) Metric() Metric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.info != nil && c.info.Metric != "" {
		return c.info.Metric
	}

	return c.metric
}

// Ensure makes sure the collection exists. It only creates the collection
// after the backend confirmed it is absent; an undetermined state is
// reported as fault.ErrStoreUnavailable. A create conflict means a
// concurrent caller won and is not an error.
func (c *Collection) Ensure(ctx context.Context) error {
	c.mu.RLock()
	ensured := c.info != nil
	c.mu.RUnlock()

	if ensured {
		return nil
	}

	info, err := c.backend.Describe(ctx, c.name)
	switch {
	case err == nil:

	case errors.Is(err, ErrCollectionNotFound):
		err := c.backend.Create(ctx, c.name, c.dimension, c.metric)
		if err != nil && !errors.Is(err, ErrCollectionExists) {
			return storeError("create collection "+c.name, err)
		}

		info, err = c.backend.Describe(ctx, c.name)
		if err != nil {
			return storeError("describe collection "+c.name, err)
		}

	default:
		return storeError("describe collection "+c.name, err)
	}

	if info.Dimension <= 0 {
		info.Dimension = c.dimension
	}

	c.mu.Lock()
	c.info = &info
	c.mu.Unlock()

	return nil
}

// Upsert validates every point before submitting all of them in one backend
// call. Nothing is written when any point is rejected.
func (c *Collection) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	if err := c.Ensure(ctx); err != nil {
		return err
	}

	records, err := c.normalize(points)
	if err != nil {
		return err
	}

	if err := c.backend.Upsert(ctx, c.name, records); err != nil {
		return storeError(fmt.Sprintf("upsert %d points into %s", len(records), c.name), err)
	}

	return nil
}

func (c *Collection) normalize(points []Point) ([]Record, error) {
	dimension := c.Dimension()

	records := make([]Record, len(points))
	for i, p := range points {
		if len(p.Vector) != dimension {
			return nil, &ShapeError{
				PointID: p.ID,
				Got:     len(p.Vector),
				Want:    dimension,
			}
		}

		id, err := ParsePointID(p.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: point %d: %w", fault.ErrVectorShape, i, err)
		}

		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)

		records[i] = Record{
			ID:      id,
			Vector:  vec,
			Payload: p.Payload,
		}
	}

	return records, nil
}

// Search returns up to topK hits, best match first. A collection holding
// fewer points than topK yields all of them.
func (c *Collection) Search(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be a positive integer, got %d", fault.ErrConfiguration, topK)
	}

	if err := c.Ensure(ctx); err != nil {
		return nil, err
	}

	dimension := c.Dimension()
	if len(vector) != dimension {
		return nil, &ShapeError{Got: len(vector), Want: dimension}
	}

	hits, err := c.backend.Search(ctx, c.name, vector, topK)
	if err != nil {
		return nil, storeError("search "+c.name, err)
	}

	hits = finiteHits(hits)

	// Euclid scores are distances; the backend already returns them best first.
	if c.Metric() != MetricEuclid {
		sort.SliceStable(hits, func(i, j int) bool {
			return hits[i].Score > hits[j].Score
		})
	}

	if len(hits) > topK {
		hits = hits[:topK]
	}

	return hits, nil
}

// finiteHits drops hits whose score is NaN or infinite. A zero vector on
// either side of a cosine comparison scores NaN, which neither orders nor
// encodes to JSON.
func finiteHits(hits []Hit) []Hit {
	kept := hits[:0]
	for _, hit := range hits {
		score := float64(hit.Score)
		if math.IsNaN(score) || math.IsInf(score, 0) {
			continue
		}

		kept = append(kept, hit)
	}

	return kept
}

func storeError(op string, err error) error {
	if fault.IsTimeout(err) {
		return fmt.Errorf("%s: %w: %w", op, fault.ErrUpstreamTimeout, err)
	}

	if errors.Is(err, fault.ErrStoreUnavailable) || errors.Is(err, fault.ErrVectorShape) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Errorf("%s: %w: %w", op, fault.ErrStoreUnavailable, err)
}
