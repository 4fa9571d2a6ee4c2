package docrag

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"
)

type EndpointSet struct {
	Ingest   endpoint.Endpoint
	Query    endpoint.Endpoint
	Search   endpoint.Endpoint
	Generate endpoint.Endpoint
}

func MakeEndpoints(svc Service) EndpointSet {
	return EndpointSet{
		Ingest:   IngestEndpoint(svc),
		Query:    QueryEndpoint(svc),
		Search:   SearchEndpoint(svc),
		Generate: GenerateEndpoint(svc),
	}
}

func IngestEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(IngestRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Ingest(ctx, req)
	}
}

func QueryEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(QueryRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Query(ctx, req)
	}
}

func SearchEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(SearchRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Search(ctx, req)
	}
}

type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

func GenerateEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(GenerateRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Generate(ctx, req.Prompt)
	}
}
