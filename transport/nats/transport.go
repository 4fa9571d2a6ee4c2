package nats

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/docrag"
)

func respondError(r micro.Request, err error) {
	headers := micro.Headers{
		KindHeader: []string{docrag.ErrorKind(err)},
	}

	r.Error(strconv.Itoa(docrag.StatusCode(err)), err.Error(), nil, micro.WithHeaders(headers))
}

// respondJSON answers with v, or with an error reply when v does not encode.
func respondJSON(r micro.Request, v any) {
	if err := r.RespondJSON(v); err != nil {
		r.Error("500", err.Error(), nil)
	}
}

func IngestHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req docrag.IngestRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			respondError(r, err)
			return
		}

		respondJSON(r, &resp)
	}
}

func QueryHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req docrag.QueryRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			respondError(r, err)
			return
		}

		respondJSON(r, &resp)
	}
}

func SearchHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req docrag.SearchRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			respondError(r, err)
			return
		}

		sources, ok := resp.([]docrag.Source)
		if !ok {
			r.Error("500", "invalid response type", nil)
			return
		}

		respondJSON(r, &sources)
	}
}

func GenerateHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req docrag.GenerateRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			respondError(r, err)
			return
		}

		text, ok := resp.(string)
		if !ok {
			r.Error("500", "invalid response type", nil)
			return
		}

		respondJSON(r, &docrag.GenerateResponse{
			OK:       true,
			Response: text,
		})
	}
}
