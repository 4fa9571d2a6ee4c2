package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/flarexio/docrag/fault"
)

// Provider loads its model on first use. Concurrent first callers share a
// single load; a failed load is not cached, so a later call tries again.
type Provider struct {
	loader Loader
	model  atomic.Pointer[Model]
	group  singleflight.Group
	log    *zap.Logger
}

func NewProvider(loader Loader) *Provider {
	return &Provider{
		loader: loader,
		log:    zap.L().With(zap.String("component", "embedding")),
	}
}

// NewStaticProvider wraps an already built model.
func NewStaticProvider(model Model) *Provider {
	p := NewProvider(func(ctx context.Context) (Model, error) {
		return model, nil
	})

	p.model.Store(&model)
	return p
}

func (p *Provider) load(ctx context.Context) (Model, error) {
	if m := p.model.Load(); m != nil {
		return *m, nil
	}

	v, err, _ := p.group.Do("model", func() (any, error) {
		if m := p.model.Load(); m != nil {
			return *m, nil
		}

		// The load outlives a single caller's cancellation.
		m, err := p.loader(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		if m.Dimension() <= 0 {
			return nil, errors.New("model reported no dimension")
		}

		p.model.Store(&m)
		p.log.Info("embedding model loaded", zap.Int("dimension", m.Dimension()))

		return m, nil
	})

	if err != nil {
		p.log.Error(err.Error())

		if errors.Is(err, fault.ErrModelUnavailable) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", fault.ErrModelUnavailable, err)
	}

	return v.(Model), nil
}

func (p *Provider) Dimension(ctx context.Context) (int, error) {
	m, err := p.load(ctx)
	if err != nil {
		return 0, err
	}

	return m.Dimension(), nil
}

// Embed returns one vector per text, in input order.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	m, err := p.load(ctx)
	if err != nil {
		return nil, err
	}

	vecs, err := m.Embed(ctx, texts)
	if err != nil {
		if fault.IsTimeout(err) && !errors.Is(err, fault.ErrUpstreamTimeout) {
			return nil, fmt.Errorf("%w: %w", fault.ErrUpstreamTimeout, err)
		}

		return nil, err
	}

	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: model returned %d vectors for %d texts",
			fault.ErrModelUnavailable, len(vecs), len(texts))
	}

	dimension := m.Dimension()
	for i, vec := range vecs {
		if len(vec) != dimension {
			return nil, fmt.Errorf("%w: vector %d has %d components, want %d",
				fault.ErrVectorShape, i, len(vec), dimension)
		}
	}

	return vecs, nil
}

func (p *Provider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	return vecs[0], nil
}
