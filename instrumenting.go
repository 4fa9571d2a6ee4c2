package docrag

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Buckets suited for pipelines that include model inference, 10ms to 120s.
var LatencyBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// InstrumentingMiddleware records request counts, latencies and ingested
// chunks on reg.
func InstrumentingMiddleware(reg prometheus.Registerer) ServiceMiddleware {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docrag_requests_total",
			Help: "Service requests by action and outcome",
		},
		[]string{"action", "status"},
	)

	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docrag_request_duration_seconds",
			Help:    "Service request duration",
			Buckets: LatencyBuckets,
		},
		[]string{"action"},
	)

	chunks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "docrag_ingested_chunks_total",
			Help: "Chunks written to the vector store",
		},
	)

	reg.MustRegister(requests, duration, chunks)

	return func(next Service) Service {
		return &instrumentingMiddleware{
			requests: requests,
			duration: duration,
			chunks:   chunks,
			next:     next,
		}
	}
}

type instrumentingMiddleware struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	chunks   prometheus.Counter
	next     Service
}

func (mw *instrumentingMiddleware) observe(action string, begin time.Time, err error) {
	mw.requests.WithLabelValues(action, ErrorKind(err)).Inc()
	mw.duration.WithLabelValues(action).Observe(time.Since(begin).Seconds())
}

func (mw *instrumentingMiddleware) Close() error {
	return mw.next.Close()
}

func (mw *instrumentingMiddleware) Ingest(ctx context.Context, req IngestRequest) (result *IngestResult, err error) {
	defer func(begin time.Time) {
		mw.observe("ingest", begin, err)

		if err == nil {
			mw.chunks.Add(float64(result.NumChunks))
		}
	}(time.Now())

	return mw.next.Ingest(ctx, req)
}

func (mw *instrumentingMiddleware) Query(ctx context.Context, req QueryRequest) (answer *Answer, err error) {
	defer func(begin time.Time) {
		mw.observe("query", begin, err)
	}(time.Now())

	return mw.next.Query(ctx, req)
}

func (mw *instrumentingMiddleware) Search(ctx context.Context, req SearchRequest) (sources []Source, err error) {
	defer func(begin time.Time) {
		mw.observe("search", begin, err)
	}(time.Now())

	return mw.next.Search(ctx, req)
}

func (mw *instrumentingMiddleware) Generate(ctx context.Context, prompt string) (text string, err error) {
	defer func(begin time.Time) {
		mw.observe("generate", begin, err)
	}(time.Now())

	return mw.next.Generate(ctx, prompt)
}
