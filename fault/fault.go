// Package fault defines the error kinds shared by every docrag component.
//
// Components wrap these sentinels with detail (fmt.Errorf("%w: ...")) or with
// typed errors that unwrap to them, so callers classify failures with
// errors.Is regardless of which layer produced them.
package fault

import (
	"context"
	"errors"
	"net"
)

var (
	ErrConfiguration        = errors.New("configuration error")
	ErrExtraction           = errors.New("extraction error")
	ErrModelUnavailable     = errors.New("embedding model unavailable")
	ErrVectorShape          = errors.New("vector shape error")
	ErrStoreUnavailable     = errors.New("vector store unavailable")
	ErrUpstreamProvider     = errors.New("upstream provider error")
	ErrUpstreamTimeout      = errors.New("upstream timeout")
	ErrPartialResponseParse = errors.New("unrecognized response shape")
)

// IsTimeout reports whether err comes from an expired deadline, either the
// caller's context or a client-side network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrUpstreamTimeout) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}
