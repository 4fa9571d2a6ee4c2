package nats

import (
	"errors"

	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/docrag"
)

func AddEndpoints(group micro.Group, endpoints docrag.EndpointSet) error {
	return errors.Join(
		group.AddEndpoint("ingest", IngestHandler(endpoints.Ingest)),
		group.AddEndpoint("query", QueryHandler(endpoints.Query)),
		group.AddEndpoint("search", SearchHandler(endpoints.Search)),
		group.AddEndpoint("generate", GenerateHandler(endpoints.Generate)),
	)
}
