package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/flarexio/docrag/fault"
)

type ModelType string

const (
	ModelTypeHashing ModelType = "hashing"
	ModelTypeOllama  ModelType = "ollama"
	ModelTypeOpenAI  ModelType = "openai"
)

type Config struct {
	Type        ModelType     `yaml:"type"`
	Model       string        `yaml:"model"`
	Dimension   int           `yaml:"dimension"`
	URL         string        `yaml:"url"`
	APIKey      string        `yaml:"apiKey"`
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
}

// Model turns texts into fixed-length vectors. Embed returns exactly one
// vector per input, each of Dimension() components.
type Model interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Loader builds a Model. It may be slow and may fail.
type Loader func(ctx context.Context) (Model, error)

func NewLoader(cfg Config) (Loader, error) {
	switch cfg.Type {
	case ModelTypeHashing, "":
		return func(ctx context.Context) (Model, error) {
			return NewHashingModel(cfg.Dimension)
		}, nil

	case ModelTypeOllama, ModelTypeOpenAI:
		return func(ctx context.Context) (Model, error) {
			return NewRemoteModel(ctx, cfg)
		}, nil

	default:
		return nil, fmt.Errorf("%w: unsupported embedding type %q", fault.ErrConfiguration, cfg.Type)
	}
}
