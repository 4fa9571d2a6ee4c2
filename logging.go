package docrag

import (
	"context"

	"go.uber.org/zap"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "docrag"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	log := mw.log.With(
		zap.String("action", "ingest"),
		zap.String("file_id", req.FileID),
		zap.String("path", req.Path),
	)

	if req.Collection != "" {
		log = log.With(
			zap.String("collection", req.Collection),
		)
	}

	result, err := mw.next.Ingest(ctx, req)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("document ingested", zap.Int("chunks", result.NumChunks))
	return result, nil
}

func (mw *loggingMiddleware) Query(ctx context.Context, req QueryRequest) (*Answer, error) {
	log := mw.log.With(
		zap.String("action", "query"),
		zap.String("query", req.Query),
	)

	if req.TopK > 0 {
		log = log.With(
			zap.Int("top_k", req.TopK),
		)
	}

	answer, err := mw.next.Query(ctx, req)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("question answered", zap.Int("sources", len(answer.Sources)))
	return answer, nil
}

func (mw *loggingMiddleware) Search(ctx context.Context, req SearchRequest) ([]Source, error) {
	log := mw.log.With(
		zap.String("action", "search"),
		zap.String("query", req.Query),
	)

	if req.TopK > 0 {
		log = log.With(
			zap.Int("top_k", req.TopK),
		)
	}

	sources, err := mw.next.Search(ctx, req)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("chunks searched", zap.Int("count", len(sources)))
	return sources, nil
}

func (mw *loggingMiddleware) Generate(ctx context.Context, prompt string) (string, error) {
	log := mw.log.With(
		zap.String("action", "generate"),
		zap.Int("prompt_length", len(prompt)),
	)

	text, err := mw.next.Generate(ctx, prompt)
	if err != nil {
		log.Error(err.Error())
		return "", err
	}

	log.Info("text generated")
	return text, nil
}
