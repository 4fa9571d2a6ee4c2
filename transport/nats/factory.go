package nats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/docrag"
)

// DefaultTimeout bounds requests whose context carries no deadline. Ingest
// runs extraction and embedding, so it is far above nats.DefaultTimeout.
const DefaultTimeout = 2 * time.Minute

func MakeEndpoints(nc *nats.Conn, prefix string) *docrag.EndpointSet {
	return &docrag.EndpointSet{
		Ingest:   IngestEndpoint(nc, prefix+".ingest"),
		Query:    QueryEndpoint(nc, prefix+".query"),
		Search:   SearchEndpoint(nc, prefix+".search"),
		Generate: GenerateEndpoint(nc, prefix+".generate"),
	}
}

func requestMsg(ctx context.Context, nc *nats.Conn, topic string, data []byte) (*nats.Msg, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	resp, err := nc.RequestWithContext(ctx, topic, data)
	if err != nil {
		return nil, err
	}

	if err := Error(resp); err != nil {
		return nil, err
	}

	return resp, nil
}

func IngestEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(docrag.IngestRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := requestMsg(ctx, nc, topic, data)
		if err != nil {
			return nil, err
		}

		var result *docrag.IngestResult
		if err := json.Unmarshal(resp.Data, &result); err != nil {
			return nil, err
		}

		return result, nil
	}
}

func QueryEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(docrag.QueryRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := requestMsg(ctx, nc, topic, data)
		if err != nil {
			return nil, err
		}

		var answer *docrag.Answer
		if err := json.Unmarshal(resp.Data, &answer); err != nil {
			return nil, err
		}

		return answer, nil
	}
}

func SearchEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(docrag.SearchRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := requestMsg(ctx, nc, topic, data)
		if err != nil {
			return nil, err
		}

		var sources []docrag.Source
		if err := json.Unmarshal(resp.Data, &sources); err != nil {
			return nil, err
		}

		return sources, nil
	}
}

func GenerateEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(docrag.GenerateRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := requestMsg(ctx, nc, topic, data)
		if err != nil {
			return nil, err
		}

		var result docrag.GenerateResponse
		if err := json.Unmarshal(resp.Data, &result); err != nil {
			return nil, err
		}

		return result.Response, nil
	}
}

// KindHeader carries docrag.ErrorKind of a failed request.
const KindHeader = "Docrag-Error-Kind"

// RemoteError is a failure reported by the serving side of a request.
type RemoteError struct {
	Code        string
	Kind        string
	Description string
}

func (e *RemoteError) Error() string {
	return e.Code + ":" + e.Description
}

func (e *RemoteError) Unwrap() error {
	return docrag.KindError(e.Kind)
}

// Error extracts the service error carried in the headers of msg, nil when
// msg is a successful reply.
func Error(msg *nats.Msg) error {
	if msg == nil {
		return errors.New("nil message")
	}

	code := msg.Header.Get(micro.ErrorCodeHeader)
	if code == "" {
		return nil
	}

	description := msg.Header.Get(micro.ErrorHeader)
	if description == "" {
		description = "unknown error"
	}

	return &RemoteError{
		Code:        code,
		Kind:        msg.Header.Get(KindHeader),
		Description: description,
	}
}
