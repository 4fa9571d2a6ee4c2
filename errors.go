package docrag

import (
	"errors"
	"net/http"

	"github.com/flarexio/docrag/fault"
)

// ErrorKind names the failure class of err, "ok" for nil.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrEmptyQuery),
		errors.Is(err, ErrEmptyPrompt):
		return "invalid_request"
	case errors.Is(err, ErrFileNotFound):
		return "not_found"
	case errors.Is(err, fault.ErrConfiguration):
		return "configuration"
	case errors.Is(err, fault.ErrExtraction):
		return "extraction"
	case errors.Is(err, fault.ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, fault.ErrVectorShape):
		return "vector_shape"
	case errors.Is(err, fault.ErrUpstreamTimeout), fault.IsTimeout(err):
		return "timeout"
	case errors.Is(err, fault.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, fault.ErrUpstreamProvider):
		return "upstream_provider"
	default:
		return "error"
	}
}

// StatusCode maps err to the HTTP status reported to callers.
func StatusCode(err error) int {
	switch ErrorKind(err) {
	case "ok":
		return http.StatusOK
	case "invalid_request", "vector_shape":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "extraction":
		return http.StatusUnprocessableEntity
	case "model_unavailable", "store_unavailable":
		return http.StatusServiceUnavailable
	case "timeout":
		return http.StatusGatewayTimeout
	case "upstream_provider":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// KindError returns the sentinel for a kind reported by ErrorKind, so an
// error that crossed a transport still matches with errors.Is. Unknown
// kinds yield nil.
func KindError(kind string) error {
	switch kind {
	case "invalid_request":
		return ErrInvalidRequest
	case "not_found":
		return ErrFileNotFound
	case "configuration":
		return fault.ErrConfiguration
	case "extraction":
		return fault.ErrExtraction
	case "model_unavailable":
		return fault.ErrModelUnavailable
	case "vector_shape":
		return fault.ErrVectorShape
	case "timeout":
		return fault.ErrUpstreamTimeout
	case "store_unavailable":
		return fault.ErrStoreUnavailable
	case "upstream_provider":
		return fault.ErrUpstreamProvider
	default:
		return nil
	}
}
