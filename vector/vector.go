package vector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flarexio/docrag/fault"
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrCollectionExists   = errors.New("collection already exists")
	ErrInvalidPointID     = errors.New("invalid point id")
)

type BackendType string

const (
	BackendTypeQdrant  BackendType = "qdrant"
	BackendTypeChromem BackendType = "chromem"
)

type Config struct {
	Backend    BackendType `yaml:"backend"`
	Collection string      `yaml:"collection"`
	Metric     Metric      `yaml:"metric"`

	Qdrant  QdrantConfig  `yaml:"qdrant"`
	Chromem ChromemConfig `yaml:"chromem"`
}

type QdrantConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
}

// BaseURL returns URL when set, otherwise http://host:port.
func (cfg QdrantConfig) BaseURL() string {
	if cfg.URL != "" {
		return strings.TrimRight(cfg.URL, "/")
	}

	return fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
}

type ChromemConfig struct {
	Persistent bool   `yaml:"persistent"`
	Path       string `yaml:"path"`
}

type Metric string

const (
	MetricCosine Metric = "Cosine"
	MetricDot    Metric = "Dot"
	MetricEuclid Metric = "Euclid"
)

func (m Metric) Valid() bool {
	switch m {
	case MetricCosine, MetricDot, MetricEuclid:
		return true
	default:
		return false
	}
}

// Payload is the metadata stored next to every vector. ChunkID keeps the
// chunker's identifier, which differs from the storage point id.
type Payload struct {
	Text    string `json:"text"`
	FileID  string `json:"file_id"`
	ChunkID string `json:"chunk_id"`
	Index   int    `json:"index"`
}

// Point is what callers hand to Collection.Upsert.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Record is a point whose id and vector passed validation. Backends only
// ever receive records.
type Record struct {
	ID      PointID
	Vector  []float32
	Payload Payload
}

type Hit struct {
	ID      string  `json:"id"`
	Score   float32 `json:"score"`
	Payload Payload `json:"payload"`
}

type CollectionInfo struct {
	Name      string
	Dimension int
	Metric    Metric
	Points    int
}

// Backend is the raw client of a similarity-search service.
//
// Describe must return ErrCollectionNotFound only when the service confirmed
// the collection is absent; any other error means the state is unknown.
// Create must return ErrCollectionExists when another caller created the
// collection first.
type Backend interface {
	Describe(ctx context.Context, name string) (CollectionInfo, error)
	Create(ctx context.Context, name string, dimension int, metric Metric) error
	Upsert(ctx context.Context, name string, records []Record) error
	Search(ctx context.Context, name string, vector []float32, limit int) ([]Hit, error)
}

// ShapeError reports a vector whose length does not match the collection.
type ShapeError struct {
	PointID string
	Got     int
	Want    int
}

func (e *ShapeError) Error() string {
	if e.PointID == "" {
		return fmt.Sprintf("vector length %d does not match dimension %d", e.Got, e.Want)
	}

	if e.Got == 0 {
		return fmt.Sprintf("point %s has no vector", e.PointID)
	}

	return fmt.Sprintf("point %s vector length %d does not match dimension %d", e.PointID, e.Got, e.Want)
}

func (e *ShapeError) Unwrap() error {
	return fault.ErrVectorShape
}
