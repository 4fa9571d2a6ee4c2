package chromem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flarexio/docrag/fault"
	"github.com/flarexio/docrag/vector"
)

func TestChromemBackend(t *testing.T) {
	assert := assert.New(t)

	backend, err := NewChromemBackend(vector.ChromemConfig{})
	if !assert.NoError(err) {
		return
	}

	ctx := context.Background()

	_, err = backend.Describe(ctx, "docs")
	assert.ErrorIs(err, vector.ErrCollectionNotFound)

	err = backend.Create(ctx, "docs", 3, vector.MetricDot)
	assert.ErrorIs(err, fault.ErrConfiguration)

	err = backend.Create(ctx, "docs", 3, vector.MetricCosine)
	assert.NoError(err)

	err = backend.Create(ctx, "docs", 3, vector.MetricCosine)
	assert.ErrorIs(err, vector.ErrCollectionExists)

	info, err := backend.Describe(ctx, "docs")
	assert.NoError(err)
	assert.Equal(3, info.Dimension)
	assert.Equal(0, info.Points)

	hits, err := backend.Search(ctx, "docs", []float32{1, 0, 0}, 3)
	assert.NoError(err)
	assert.Empty(hits)

	records := []vector.Record{
		{
			ID:      vector.NewPointID(),
			Vector:  []float32{1, 0, 0},
			Payload: vector.Payload{Text: "alpha", FileID: "f1", ChunkID: "chunk_0_a", Index: 0},
		},
		{
			ID:      vector.NewPointID(),
			Vector:  []float32{0, 1, 0},
			Payload: vector.Payload{Text: "beta", FileID: "f1", ChunkID: "chunk_1_a", Index: 1},
		},
	}

	err = backend.Upsert(ctx, "docs", records)
	assert.NoError(err)

	hits, err = backend.Search(ctx, "docs", []float32{0.1, 1, 0}, 5)
	assert.NoError(err)

	if assert.Len(hits, 2) {
		assert.Equal(records[1].ID.String(), hits[0].ID)
		assert.Equal("beta", hits[0].Payload.Text)
		assert.Equal("chunk_1_a", hits[0].Payload.ChunkID)
		assert.Equal(1, hits[0].Payload.Index)
		assert.Greater(hits[0].Score, hits[1].Score)
	}
}

func TestChromemCollectionSearchFewerPoints(t *testing.T) {
	assert := assert.New(t)

	backend, err := NewChromemBackend(vector.ChromemConfig{})
	if !assert.NoError(err) {
		return
	}

	ctx := context.Background()
	c := vector.NewCollection(backend, "docs", 2, vector.MetricCosine)

	err = c.Upsert(ctx, []vector.Point{
		{ID: vector.NewPointID().String(), Vector: []float32{1, 0}, Payload: vector.Payload{Text: "only"}},
	})
	assert.NoError(err)

	hits, err := c.Search(ctx, []float32{1, 0}, 3)
	assert.NoError(err)
	assert.Len(hits, 1)
}

func TestChromemReopenedDimension(t *testing.T) {
	assert := assert.New(t)

	ctx := context.Background()
	cfg := vector.ChromemConfig{
		Persistent: true,
		Path:       t.TempDir(),
	}

	backend, err := NewChromemBackend(cfg)
	if !assert.NoError(err) {
		return
	}

	err = backend.Create(ctx, "docs", 3, vector.MetricCosine)
	assert.NoError(err)

	err = backend.Upsert(ctx, "docs", []vector.Record{
		{ID: vector.NewPointID(), Vector: []float32{1, 0, 0}, Payload: vector.Payload{Text: "alpha"}},
	})
	assert.NoError(err)

	reopened, err := NewChromemBackend(cfg)
	if !assert.NoError(err) {
		return
	}

	info, err := reopened.Describe(ctx, "docs")
	assert.NoError(err)
	assert.Equal(0, info.Dimension)
	assert.Equal(1, info.Points)

	c := vector.NewCollection(reopened, "docs", 4, vector.MetricCosine)
	err = c.Upsert(ctx, []vector.Point{{ID: "2", Vector: []float32{1, 0, 0, 0}}})
	assert.ErrorIs(err, fault.ErrVectorShape)
	assert.NotErrorIs(err, fault.ErrStoreUnavailable)

	err = reopened.Upsert(ctx, "docs", []vector.Record{
		{ID: vector.NewPointID(), Vector: []float32{0, 1, 0}, Payload: vector.Payload{Text: "beta"}},
	})
	assert.NoError(err)

	info, err = reopened.Describe(ctx, "docs")
	assert.NoError(err)
	assert.Equal(3, info.Dimension)
	assert.Equal(2, info.Points)

	_, err = reopened.Search(ctx, "docs", []float32{1, 0, 0, 0}, 1)
	assert.ErrorIs(err, fault.ErrVectorShape)

	err = reopened.Upsert(ctx, "docs", []vector.Record{
		{ID: vector.NewPointID(), Vector: []float32{0, 1}},
	})
	assert.ErrorIs(err, fault.ErrVectorShape)
}
