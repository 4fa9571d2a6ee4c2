package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/philippgille/chromem-go"
	"golang.org/x/sync/errgroup"

	"github.com/flarexio/docrag/fault"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 4

	DefaultOllamaModel = "nomic-embed-text"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultOpenAIURL   = "https://api.openai.com/v1"
)

// RemoteModel embeds texts through an embedding API, one request per text.
type RemoteModel struct {
	embed       chromem.EmbeddingFunc
	dimension   int
	timeout     time.Duration
	concurrency int
}

// NewRemoteModel builds the API client and embeds one sample text to learn the
// vector dimension. A configured dimension must match the sample.
func NewRemoteModel(ctx context.Context, cfg Config) (*RemoteModel, error) {
	var embed chromem.EmbeddingFunc
	switch cfg.Type {
	case ModelTypeOllama:
		model := cfg.Model
		if model == "" {
			model = DefaultOllamaModel
		}

		embed = chromem.NewEmbeddingFuncOllama(model, cfg.URL)

	case ModelTypeOpenAI:
		model := cfg.Model
		if model == "" {
			model = DefaultOpenAIModel
		}

		url := cfg.URL
		if url == "" {
			url = DefaultOpenAIURL
		}

		embed = chromem.NewEmbeddingFuncOpenAICompat(url, cfg.APIKey, model, nil)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding type %q", fault.ErrConfiguration, cfg.Type)
	}

	return newRemoteModel(ctx, embed, cfg)
}

func newRemoteModel(ctx context.Context, embed chromem.EmbeddingFunc, cfg Config) (*RemoteModel, error) {
	m := &RemoteModel{
		embed:       embed,
		timeout:     cfg.Timeout,
		concurrency: cfg.Concurrency,
	}

	if m.timeout <= 0 {
		m.timeout = DefaultTimeout
	}

	if m.concurrency <= 0 {
		m.concurrency = DefaultConcurrency
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	sample, err := embed(ctx, "dimension sample")
	if err != nil {
		return nil, fmt.Errorf("%w: sample embedding failed: %w", fault.ErrModelUnavailable, err)
	}

	if len(sample) == 0 {
		return nil, fmt.Errorf("%w: sample embedding is empty", fault.ErrModelUnavailable)
	}

	if cfg.Dimension > 0 && cfg.Dimension != len(sample) {
		return nil, fmt.Errorf("%w: model produces %d dimensions, configured %d",
			fault.ErrConfiguration, len(sample), cfg.Dimension)
	}

	m.dimension = len(sample)
	return m, nil
}

func (m *RemoteModel) Dimension() int {
	return m.dimension
}

func (m *RemoteModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	vecs := make([][]float32, len(texts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)

	for i, text := range texts {
		g.Go(func() error {
			vec, err := m.embed(ctx, text)
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}

			vecs[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return vecs, nil
}
