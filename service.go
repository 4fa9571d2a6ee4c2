package docrag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/flarexio/docrag/extract"
	"github.com/flarexio/docrag/llm"
	"github.com/flarexio/docrag/vector"
)

// Service defines the document ingestion and question answering pipeline.
type Service interface {

	// Close releases the resources held by the service.
	Close() error

	// Ingest extracts, chunks and embeds a stored document and writes its
	// chunks to the collection.
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)

	// Query answers a question from the chunks closest to it.
	Query(ctx context.Context, req QueryRequest) (*Answer, error)

	// Search returns the chunks closest to a question without generating an answer.
	Search(ctx context.Context, req SearchRequest) ([]Source, error)

	// Generate sends a raw prompt to the answer provider.
	Generate(ctx context.Context, prompt string) (string, error)
}

type ServiceMiddleware func(Service) Service

func NewService(cfg Config, embedder Embedder, db *vector.DB, generator llm.Generator) (Service, error) {
	if embedder == nil || db == nil || generator == nil {
		return nil, errors.New("embedder, vector db and generator are required")
	}

	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}

	if cfg.Vector.Collection == "" {
		cfg.Vector.Collection = DefaultCollection
	}

	if cfg.Chunk == (ChunkConfig{}) {
		cfg.Chunk = ChunkConfig{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		}
	}

	log := zap.L().With(
		zap.String("service", "docrag"),
	)

	return &service{
		retriever: NewRetriever(embedder, db),
		embedder:  embedder,
		generator: generator,
		cfg:       cfg,
		log:       log,
	}, nil
}

type service struct {
	retriever *Retriever
	embedder  Embedder
	generator llm.Generator

	cfg Config
	log *zap.Logger
}

func (svc *service) Close() error {
	return nil
}

func (svc *service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := svc.cfg.RequestTimeout.Duration()
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, timeout)
}

func (svc *service) collection(name string) string {
	if name == "" {
		return svc.cfg.Vector.Collection
	}

	return name
}

// within reports whether path resolves to a location under root.
func within(root, path string) bool {
	root, err := filepath.Abs(root)
	if err != nil {
		return false
	}

	path, err = filepath.Abs(path)
	if err != nil {
		return false
	}

	r, rootErr := filepath.EvalSymlinks(root)
	p, pathErr := filepath.EvalSymlinks(path)
	if rootErr == nil && pathErr == nil {
		root, path = r, p
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (svc *service) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	log := svc.log.With(
		zap.String("action", "ingest"),
		zap.String("file_id", req.FileID),
	)

	if req.FileID == "" || req.Path == "" {
		return nil, fmt.Errorf("%w: file_id and path are required", ErrInvalidRequest)
	}

	if root := svc.cfg.IngestRoot; root != "" && !within(root, req.Path) {
		return nil, fmt.Errorf("%w: path %s is outside %s", ErrInvalidRequest, req.Path, root)
	}

	if _, err := os.Stat(req.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, req.Path)
		}

		return nil, err
	}

	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	text, err := extract.Extract(req.Path)
	if err != nil {
		return nil, err
	}

	chunks, err := ChunkText(text, svc.cfg.Chunk.Size, svc.cfg.Chunk.Overlap)
	if err != nil {
		return nil, err
	}

	if len(chunks) == 0 {
		log.Warn("document has no text")
		return &IngestResult{Ingested: true}, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vecs, err := svc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	collection, err := svc.retriever.Collection(ctx, svc.collection(req.Collection))
	if err != nil {
		return nil, err
	}

	// Point ids are fresh per attempt; a retried failed batch may leave
	// duplicates behind.
	points := make([]vector.Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = vector.Point{
			ID:     vector.NewPointID().String(),
			Vector: vecs[i],
			Payload: vector.Payload{
				Text:    chunk.Text,
				FileID:  req.FileID,
				ChunkID: chunk.ID,
				Index:   chunk.Index,
			},
		}
	}

	if err := collection.Upsert(ctx, points); err != nil {
		return nil, err
	}

	log.Debug("points upserted",
		zap.String("collection", collection.Name()),
		zap.Int("count", len(points)),
	)

	return &IngestResult{
		Ingested:  true,
		NumChunks: len(chunks),
	}, nil
}

func (svc *service) retrieve(ctx context.Context, req QueryRequest) ([]vector.Hit, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}

	topK := req.TopK
	switch {
	case topK == 0:
		topK = svc.cfg.TopK

	case topK < 0:
		return nil, fmt.Errorf("%w: top_k must be a positive integer, got %d", ErrInvalidRequest, topK)
	}

	return svc.retriever.Retrieve(ctx, svc.collection(req.Collection), req.Query, topK)
}

func (svc *service) Query(ctx context.Context, req QueryRequest) (*Answer, error) {
	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	hits, err := svc.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(req.Query, hits)

	text, err := svc.generator.Generate(ctx, prompt, 0)
	if err != nil {
		return nil, err
	}

	return &Answer{
		Text:    text,
		Sources: Sources(hits),
	}, nil
}

func (svc *service) Search(ctx context.Context, req SearchRequest) ([]Source, error) {
	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	hits, err := svc.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}

	return Sources(hits), nil
}

func (svc *service) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	return svc.generator.Generate(ctx, prompt, 0)
}
