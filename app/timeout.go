package app

import (
	"context"
	"net/http"
	"time"

	"github.com/advdv/bfilter"
)

// DefaultDeadlineBuffer is reserved between the request deadline and the server's write
// timeout, so that a handler that runs out of time still gets its error page out.
const DefaultDeadlineBuffer = 500 * time.Millisecond

// TimeoutConfig holds timeout configuration for the HTTP server.
type TimeoutConfig struct {
	// RequestTimeout bounds the time a handler may take.
	RequestTimeout time.Duration

	// DeadlineBuffer is added on top of RequestTimeout for writing the response.
	// Defaults to DefaultDeadlineBuffer.
	DeadlineBuffer time.Duration
}

// ServerTimeouts returns the http.Server timeouts for the configured request timeout.
// The write timeout leaves DeadlineBuffer after the request deadline because responses
// are only written once the handler returned.
func (tc TimeoutConfig) ServerTimeouts() (readHeaderTimeout, readTimeout, writeTimeout, idleTimeout time.Duration) {
	buffer := tc.DeadlineBuffer
	if buffer <= 0 {
		buffer = DefaultDeadlineBuffer
	}

	timeout := tc.RequestTimeout

	readHeaderTimeout = min(timeout, 5*time.Second)
	readTimeout = timeout
	writeTimeout = timeout + buffer
	idleTimeout = max(timeout, 60*time.Second)

	return
}

// WithRequestTimeout returns middleware that bounds the request context by timeout. A
// zero or negative timeout leaves the context alone.
func WithRequestTimeout(timeout time.Duration) bfilter.Middleware {
	return func(next bfilter.BareHandler) bfilter.BareHandler {
		if timeout <= 0 {
			return next
		}

		return bfilter.BareHandlerFunc(func(w bfilter.ResponseWriter, r *http.Request) error {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			return next.ServeBareBFilter(w, r.WithContext(ctx))
		})
	}
}

// RequestRemainingTime returns the duration until the request context deadline.
// Returns 0 if no deadline is set or if the deadline has passed.
func RequestRemainingTime(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}

	return max(time.Until(deadline), 0)
}
