package docrag

import (
	"context"
	"errors"
)

// ProxyMiddleware serves the Service through remote endpoints. The wrapped
// service is ignored.
func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return nil
}

func (mw *proxyMiddleware) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	resp, err := mw.endpoints.Ingest(ctx, req)
	if err != nil {
		return nil, err
	}

	result, ok := resp.(*IngestResult)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return result, nil
}

func (mw *proxyMiddleware) Query(ctx context.Context, req QueryRequest) (*Answer, error) {
	resp, err := mw.endpoints.Query(ctx, req)
	if err != nil {
		return nil, err
	}

	answer, ok := resp.(*Answer)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return answer, nil
}

func (mw *proxyMiddleware) Search(ctx context.Context, req SearchRequest) ([]Source, error) {
	resp, err := mw.endpoints.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	sources, ok := resp.([]Source)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return sources, nil
}

func (mw *proxyMiddleware) Generate(ctx context.Context, prompt string) (string, error) {
	req := GenerateRequest{
		Prompt: prompt,
	}

	resp, err := mw.endpoints.Generate(ctx, req)
	if err != nil {
		return "", err
	}

	text, ok := resp.(string)
	if !ok {
		return "", errors.New("invalid response type")
	}

	return text, nil
}
