package app

import (
	"context"
	"net/http"

	"github.com/advdv/bfilter"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ctxKey is the key type for context values.
type ctxKey int

const ctxKeyRequestDep ctxKey = iota

// requestDep holds request-scoped dependencies available via context.
// App-scoped dependencies (env, filter, aggregator) are accessed via Runtime instead.
type requestDep struct {
	logger *zap.Logger
}

// withRequestDep injects dependencies into the request context.
func withRequestDep(d *requestDep) bfilter.Middleware {
	return func(next bfilter.BareHandler) bfilter.BareHandler {
		return bfilter.BareHandlerFunc(func(w bfilter.ResponseWriter, r *http.Request) error {
			ctx := context.WithValue(r.Context(), ctxKeyRequestDep, d)
			return next.ServeBareBFilter(w, r.WithContext(ctx))
		})
	}
}

func requestDepFromContext(ctx context.Context) *requestDep {
	d, ok := ctx.Value(ctxKeyRequestDep).(*requestDep)
	if !ok {
		panic("app: requestDep not found in context; is the middleware configured?")
	}

	return d
}

// Log returns a zap logger from the context that carries the request's trace and step id,
// and the OpenTelemetry span when one is recording.
func Log(ctx context.Context) *zap.Logger {
	d := requestDepFromContext(ctx)
	return d.logger.With(traceFields(ctx)...)
}

// Span returns the current OpenTelemetry span from the context.
func Span(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

func traceFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if req, ok := bfilter.FromContext(ctx); ok {
		fields = append(fields, zap.String("trace_id", req.TraceID()), zap.String("step_id", req.StepID()))
	}

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		fields = append(fields,
			zap.String("otel_trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()))
	}

	return fields
}
