package docrag

import (
	"context"
	"fmt"

	"github.com/flarexio/docrag/fault"
	"github.com/flarexio/docrag/vector"
)

// Embedder is the part of embedding.Provider the pipeline needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Dimension(ctx context.Context) (int, error)
}

// Retriever embeds a question and looks up its nearest chunks.
type Retriever struct {
	embedder Embedder
	db       *vector.DB
}

func NewRetriever(embedder Embedder, db *vector.DB) *Retriever {
	return &Retriever{embedder, db}
}

// Collection resolves the named collection, sized for the embedding model.
func (r *Retriever) Collection(ctx context.Context, name string) (*vector.Collection, error) {
	dimension, err := r.embedder.Dimension(ctx)
	if err != nil {
		return nil, err
	}

	return r.db.Collection(name, dimension)
}

// Retrieve returns up to topK hits for query, best match first.
func (r *Retriever) Retrieve(ctx context.Context, collection string, query string, topK int) ([]vector.Hit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be a positive integer, got %d", fault.ErrConfiguration, topK)
	}

	c, err := r.Collection(ctx, collection)
	if err != nil {
		return nil, err
	}

	vec, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}

	return c.Search(ctx, vec, topK)
}
