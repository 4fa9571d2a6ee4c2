package docrag

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flarexio/docrag/fault"
	"github.com/flarexio/docrag/llm"
)

func TestStatusCode(t *testing.T) {
	assert := assert.New(t)

	tests := []struct {
		err    error
		kind   string
		status int
	}{
		{nil, "ok", http.StatusOK},
		{fmt.Errorf("%w: top_k", ErrInvalidRequest), "invalid_request", http.StatusBadRequest},
		{ErrEmptyQuery, "invalid_request", http.StatusBadRequest},
		{fmt.Errorf("%w: /tmp/x", ErrFileNotFound), "not_found", http.StatusNotFound},
		{fault.ErrConfiguration, "configuration", http.StatusInternalServerError},
		{fmt.Errorf("%w: broken pdf", fault.ErrExtraction), "extraction", http.StatusUnprocessableEntity},
		{fault.ErrModelUnavailable, "model_unavailable", http.StatusServiceUnavailable},
		{fault.ErrStoreUnavailable, "store_unavailable", http.StatusServiceUnavailable},
		{fault.ErrVectorShape, "vector_shape", http.StatusBadRequest},
		{context.DeadlineExceeded, "timeout", http.StatusGatewayTimeout},
		{fmt.Errorf("%w: %w", fault.ErrStoreUnavailable, fault.ErrUpstreamTimeout), "timeout", http.StatusGatewayTimeout},
		{&llm.ProviderError{Provider: llm.ProviderOpenAI, Status: 500}, "upstream_provider", http.StatusBadGateway},
		{errors.New("boom"), "error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(tt.kind, ErrorKind(tt.err), fmt.Sprint(tt.err))
		assert.Equal(tt.status, StatusCode(tt.err), fmt.Sprint(tt.err))
	}
}

func TestKindError(t *testing.T) {
	assert := assert.New(t)

	for _, err := range []error{
		ErrInvalidRequest,
		ErrFileNotFound,
		fault.ErrConfiguration,
		fault.ErrExtraction,
		fault.ErrModelUnavailable,
		fault.ErrVectorShape,
		fault.ErrUpstreamTimeout,
		fault.ErrStoreUnavailable,
		fault.ErrUpstreamProvider,
	} {
		assert.ErrorIs(KindError(ErrorKind(err)), err)
	}

	assert.Nil(KindError("ok"))
	assert.Nil(KindError("error"))
}
