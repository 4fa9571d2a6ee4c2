package docrag

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

type stubService struct {
	chunks int
	err    error
}

func (s *stubService) Close() error { return nil }

func (s *stubService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if s.err != nil {
		return nil, s.err
	}

	return &IngestResult{Ingested: true, NumChunks: s.chunks}, nil
}

func (s *stubService) Query(ctx context.Context, req QueryRequest) (*Answer, error) {
	if s.err != nil {
		return nil, s.err
	}

	return &Answer{Text: "ok"}, nil
}

func (s *stubService) Search(ctx context.Context, req SearchRequest) ([]Source, error) {
	return nil, s.err
}

func (s *stubService) Generate(ctx context.Context, prompt string) (string, error) {
	return "ok", s.err
}

func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}

	values := make(map[string]float64)
	for _, family := range families {
		for _, m := range family.GetMetric() {
			key := family.GetName()
			for _, label := range m.GetLabel() {
				key += "," + label.GetName() + "=" + label.GetValue()
			}

			switch {
			case m.GetCounter() != nil:
				values[key] = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				values[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}

	return values
}

func TestInstrumentingMiddleware(t *testing.T) {
	assert := assert.New(t)

	reg := prometheus.NewRegistry()
	stub := &stubService{chunks: 3}
	svc := InstrumentingMiddleware(reg)(stub)

	ctx := context.Background()

	_, err := svc.Ingest(ctx, IngestRequest{FileID: "f", Path: "p"})
	assert.NoError(err)

	_, err = svc.Query(ctx, QueryRequest{Query: "q"})
	assert.NoError(err)

	stub.err = ErrFileNotFound
	_, err = svc.Ingest(ctx, IngestRequest{FileID: "f", Path: "p"})
	assert.ErrorIs(err, ErrFileNotFound)

	values := gather(t, reg)

	assert.Equal(1.0, values["docrag_requests_total,action=ingest,status=ok"])
	assert.Equal(1.0, values["docrag_requests_total,action=ingest,status=not_found"])
	assert.Equal(1.0, values["docrag_requests_total,action=query,status=ok"])
	assert.Equal(3.0, values["docrag_ingested_chunks_total"])
	assert.Equal(2.0, values["docrag_request_duration_seconds,action=ingest"])
}
