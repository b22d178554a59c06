// Package example implements example middleware in an outside package.
package example

import (
	"context"
	"net/http"

	"github.com/advdv/bfilter"
	"go.uber.org/zap"
)

// ctxKey type scopes middleware values.
type ctxKey string

// Middleware provides an example for middleware that adds a logger carrying the request's
// trace id to the context, and reports the caller's user id to the filter.
func Middleware(logs *zap.Logger) bfilter.Middleware {
	return func(n bfilter.BareHandler) bfilter.BareHandler {
		return bfilter.BareHandlerFunc(func(w bfilter.ResponseWriter, r *http.Request) error {
			logs := logs.With(zap.String("method", r.Method))
			if req, ok := bfilter.FromContext(r.Context()); ok {
				logs = logs.With(zap.String("trace_id", req.TraceID()))
			}

			if uid := r.Header.Get("X-User-Id"); uid != "" {
				bfilter.SetUserID(r.Context(), uid)
			}

			return n.ServeBareBFilter(w, r.WithContext(context.WithValue(r.Context(), ctxKey("zap"), logs)))
		})
	}
}

// Log returns the logger put in place by Middleware, or a no-op logger.
func Log(ctx context.Context) *zap.Logger {
	if v, ok := ctx.Value(ctxKey("zap")).(*zap.Logger); ok {
		return v
	}

	return zap.NewNop()
}
