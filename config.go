package docrag

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flarexio/docrag/embedding"
	"github.com/flarexio/docrag/fault"
	"github.com/flarexio/docrag/llm"
	"github.com/flarexio/docrag/upload"
	"github.com/flarexio/docrag/vector"
)

func DefaultConfig() Config {
	return Config{
		Chunk: ChunkConfig{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		TopK:           DefaultTopK,
		RequestTimeout: Duration(2 * time.Minute),
		UploadDir:      upload.DefaultDir,
		Embedding: embedding.Config{
			Type:    embedding.ModelTypeHashing,
			Model:   "all-MiniLM-L6-v2",
			Timeout: embedding.DefaultTimeout,
		},
		Vector: vector.Config{
			Backend:    vector.BackendTypeQdrant,
			Collection: DefaultCollection,
			Metric:     vector.MetricCosine,
			Qdrant: vector.QdrantConfig{
				Host:    "localhost",
				Port:    6333,
				Timeout: 30 * time.Second,
			},
		},
		LLM: llm.Config{
			MaxTokens: llm.DefaultMaxTokens,
			Timeout:   llm.DefaultTimeout,
		},
	}
}

// LoadConfig reads <path>/config.yaml over the defaults, then applies the
// environment overrides and validates the result. A missing file is not an
// error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(filepath.Join(path, "config.yaml"))
	switch {
	case err == nil:
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("%w: config.yaml: %w", fault.ErrConfiguration, err)
		}

	case errors.Is(err, os.ErrNotExist):

	default:
		return cfg, err
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// ApplyEnv overrides fields from environment-style variables.
func (cfg *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	env := envReader{lookup: lookup}

	env.StringVar("QDRANT_HOST", &cfg.Vector.Qdrant.Host)
	env.IntVar("QDRANT_PORT", &cfg.Vector.Qdrant.Port)
	env.StringVar("QDRANT_URL", &cfg.Vector.Qdrant.URL)
	env.StringVar("QDRANT_API_KEY", &cfg.Vector.Qdrant.APIKey)
	env.StringVar("QDRANT_COLLECTION", &cfg.Vector.Collection)

	if v, ok := env.value("VECTOR_BACKEND"); ok {
		cfg.Vector.Backend = vector.BackendType(strings.ToLower(v))
	}

	if v, ok := env.value("EMBED_TYPE"); ok {
		cfg.Embedding.Type = embedding.ModelType(strings.ToLower(v))
	}

	env.StringVar("EMBED_MODEL", &cfg.Embedding.Model)
	env.IntVar("EMBED_DIM", &cfg.Embedding.Dimension)
	env.StringVar("EMBED_URL", &cfg.Embedding.URL)
	env.StringVar("EMBED_API_KEY", &cfg.Embedding.APIKey)

	env.IntVar("CHUNK_SIZE", &cfg.Chunk.Size)
	env.IntVar("CHUNK_OVERLAP", &cfg.Chunk.Overlap)

	env.StringVar("LLM_ENDPOINT", &cfg.LLM.Endpoint)
	env.StringVar("LLM_API_KEY", &cfg.LLM.APIKey)

	if v, ok := env.value("LLM_PROVIDER"); ok {
		cfg.LLM.Provider = llm.Provider(strings.ToLower(v))
	}

	env.StringVar("OPENAI_MODEL", &cfg.LLM.Model)
	env.StringVar("LLM_MODEL", &cfg.LLM.Model)
	env.FloatVar("LLM_TEMPERATURE", &cfg.LLM.Temperature)
	env.IntVar("LLM_MAX_TOKENS", &cfg.LLM.MaxTokens)

	env.StringVar("UPLOAD_DIR", &cfg.UploadDir)
	env.StringVar("INGEST_ROOT", &cfg.IngestRoot)

	return errors.Join(env.errs...)
}

// Validate checks the settings that would otherwise fail deep inside a
// request.
func (cfg Config) Validate() error {
	var errs []error

	if cfg.Chunk.Size <= 0 || cfg.Chunk.Overlap < 0 || cfg.Chunk.Size <= cfg.Chunk.Overlap {
		errs = append(errs, fmt.Errorf("chunk size %d must be positive and greater than overlap %d",
			cfg.Chunk.Size, cfg.Chunk.Overlap))
	}

	if cfg.TopK <= 0 {
		errs = append(errs, fmt.Errorf("topK must be positive, got %d", cfg.TopK))
	}

	if cfg.Vector.Collection == "" {
		errs = append(errs, errors.New("vector collection name is empty"))
	}

	switch cfg.Vector.Backend {
	case vector.BackendTypeQdrant:
		if cfg.Vector.Qdrant.URL == "" && (cfg.Vector.Qdrant.Host == "" || cfg.Vector.Qdrant.Port <= 0) {
			errs = append(errs, errors.New("qdrant host and port are required"))
		}

	case vector.BackendTypeChromem:
		if cfg.Vector.Metric != "" && cfg.Vector.Metric != vector.MetricCosine {
			errs = append(errs, fmt.Errorf("chromem backend does not support metric %s", cfg.Vector.Metric))
		}

	default:
		errs = append(errs, fmt.Errorf("unsupported vector backend %q", cfg.Vector.Backend))
	}

	if cfg.Vector.Metric != "" && !cfg.Vector.Metric.Valid() {
		errs = append(errs, fmt.Errorf("unsupported metric %q", cfg.Vector.Metric))
	}

	switch cfg.Embedding.Type {
	case embedding.ModelTypeHashing, "":
		if cfg.Embedding.Dimension < 0 {
			errs = append(errs, fmt.Errorf("invalid embedding dimension %d", cfg.Embedding.Dimension))
		}

	case embedding.ModelTypeOllama, embedding.ModelTypeOpenAI:

	default:
		errs = append(errs, fmt.Errorf("unsupported embedding type %q", cfg.Embedding.Type))
	}

	switch cfg.LLM.Provider {
	case llm.ProviderGeneric, llm.ProviderOpenAI, llm.ProviderGroq, llm.ProviderKlangoo, llm.ProviderOllama, "generic":

	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider))
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", fault.ErrConfiguration, errors.Join(errs...))
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *envReader) value(key string) (string, bool) {
	v, ok := r.lookup(key)
	if !ok {
		return "", false
	}

	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *envReader) StringVar(key string, dst *string) {
	if v, ok := r.value(key); ok {
		*dst = v
	}
}

func (r *envReader) IntVar(key string, dst *int) {
	v, ok := r.value(key)
	if !ok {
		return
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%w: %s=%q is not an integer", fault.ErrConfiguration, key, v))
		return
	}

	*dst = n
}

func (r *envReader) FloatVar(key string, dst *float64) {
	v, ok := r.value(key)
	if !ok {
		return
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%w: %s=%q is not a number", fault.ErrConfiguration, key, v))
		return
	}

	*dst = f
}
