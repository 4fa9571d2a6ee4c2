package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flarexio/docrag/vector"
)

const DefaultTimeout = 10 * time.Second

var _ vector.Backend = (*backend)(nil)

func NewQdrantBackend(cfg vector.QdrantConfig) vector.Backend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &backend{
		baseURL: cfg.BaseURL(),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type backend struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Status any             `json:"status"`
}

type collectionResult struct {
	PointsCount int `json:"points_count"`
	Config      struct {
		Params struct {
			Vectors struct {
				Size     int    `json:"size"`
				Distance string `json:"distance"`
			} `json:"vectors"`
		} `json:"params"`
	} `json:"config"`
}

// Describe reports ErrCollectionNotFound only on a 404 answer.
func (b *backend) Describe(ctx context.Context, name string) (vector.CollectionInfo, error) {
	status, body, err := b.do(ctx, http.MethodGet, b.collectionURL(name), nil)
	if err != nil {
		return vector.CollectionInfo{}, err
	}

	switch status {
	case http.StatusOK:

	case http.StatusNotFound:
		return vector.CollectionInfo{}, fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)

	default:
		return vector.CollectionInfo{}, statusError("describe collection", status, body)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return vector.CollectionInfo{}, fmt.Errorf("parsing collection info: %w", err)
	}

	var result collectionResult
	if err := json.Unmarshal(env.Result, &result); err != nil {
		return vector.CollectionInfo{}, fmt.Errorf("parsing collection info: %w", err)
	}

	return vector.CollectionInfo{
		Name:      name,
		Dimension: result.Config.Params.Vectors.Size,
		Metric:    vector.Metric(result.Config.Params.Vectors.Distance),
		Points:    result.PointsCount,
	}, nil
}

func (b *backend) Create(ctx context.Context, name string, dimension int, metric vector.Metric) error {
	req := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": string(metric),
		},
	}

	status, body, err := b.do(ctx, http.MethodPut, b.collectionURL(name), req)
	if err != nil {
		return err
	}

	switch {
	case status == http.StatusOK:
		return nil

	case status == http.StatusConflict,
		strings.Contains(strings.ToLower(string(body)), "already exists"):
		return fmt.Errorf("%w: %s", vector.ErrCollectionExists, name)

	default:
		return statusError("create collection", status, body)
	}
}

type point struct {
	ID      vector.PointID `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload vector.Payload `json:"payload"`
}

func (b *backend) Upsert(ctx context.Context, name string, records []vector.Record) error {
	points := make([]point, len(records))
	for i, r := range records {
		points[i] = point{
			ID:      r.ID,
			Vector:  r.Vector,
			Payload: r.Payload,
		}
	}

	req := map[string]any{
		"points": points,
	}

	url := b.collectionURL(name) + "/points?wait=true"

	status, body, err := b.do(ctx, http.MethodPut, url, req)
	if err != nil {
		return err
	}

	if status != http.StatusOK {
		return statusError("upsert points", status, body)
	}

	return nil
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type scoredPoint struct {
	ID      vector.PointID `json:"id"`
	Score   float32        `json:"score"`
	Payload vector.Payload `json:"payload"`
}

func (b *backend) Search(ctx context.Context, name string, vec []float32, limit int) ([]vector.Hit, error) {
	req := searchRequest{
		Vector:      vec,
		Limit:       limit,
		WithPayload: true,
	}

	url := b.collectionURL(name) + "/points/search"

	status, body, err := b.do(ctx, http.MethodPost, url, req)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, statusError("search points", status, body)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	var results []scoredPoint
	if err := json.Unmarshal(env.Result, &results); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	hits := make([]vector.Hit, len(results))
	for i, r := range results {
		hits[i] = vector.Hit{
			ID:      r.ID.String(),
			Score:   r.Score,
			Payload: r.Payload,
		}
	}

	return hits, nil
}

func (b *backend) collectionURL(name string) string {
	return b.baseURL + "/collections/" + url.PathEscape(name)
}

func (b *backend) do(ctx context.Context, method string, url string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshaling request: %w", err)
		}

		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if b.apiKey != "" {
		req.Header.Set("api-key", b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("qdrant %s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response: %w", err)
	}

	return resp.StatusCode, body, nil
}

func statusError(op string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = strings.ToValidUTF8(msg[:512], "")
	}

	return fmt.Errorf("qdrant %s returned status %d: %s", op, status, msg)
}
