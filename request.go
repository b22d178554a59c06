package bfilter

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/advdv/bfilter/charset"
	"github.com/advdv/bfilter/trace"
)

// ctxKey is the key type for context values.
type ctxKey int

const ctxKeyRequest ctxKey = iota

// Request is the per-request state the filter keeps in the request context.
type Request struct {
	start  time.Time
	params *charset.Params
	trace  trace.Context
	userID atomic.Pointer[string]
}

func newRequest(start time.Time, params *charset.Params) *Request {
	return &Request{start: start, params: params}
}

// FromContext returns the filter state of the request that ctx belongs to.
func FromContext(ctx context.Context) (*Request, bool) {
	req, ok := ctx.Value(ctxKeyRequest).(*Request)
	return req, ok
}

func withRequest(ctx context.Context, req *Request) context.Context {
	return context.WithValue(ctx, ctxKeyRequest, req)
}

// SetUserID attaches the id of the authenticated user to the request, so that it shows up
// in the access record. It reports false when ctx does not belong to a filtered request.
func SetUserID(ctx context.Context, uid string) bool {
	req, ok := FromContext(ctx)
	if !ok {
		return false
	}

	req.userID.Store(&uid)

	return true
}

// Start returns when the filter started serving the request.
func (r *Request) Start() time.Time { return r.start }

// Cost returns the time spent on the request so far.
func (r *Request) Cost() time.Duration { return time.Since(r.start) }

// Params returns the query parameters, decoded with the detected encoding.
func (r *Request) Params() *charset.Params { return r.params }

// Encoding returns the detected encoding of the query string.
func (r *Request) Encoding() charset.Encoding { return r.params.Encoding() }

// Trace returns the resolved trace identity.
func (r *Request) Trace() trace.Context { return r.trace }

// TraceID returns the trace id.
func (r *Request) TraceID() string { return r.trace.TraceID }

// StepID returns the step id within the trace.
func (r *Request) StepID() string { return r.trace.StepID }

// Colored reports whether the request is sampled.
func (r *Request) Colored() bool { return r.trace.Color }

// IsBot reports whether the user agent is a crawler.
func (r *Request) IsBot() bool { return r.trace.Bot }

// UserID returns the id set with SetUserID, or an empty string.
func (r *Request) UserID() string {
	if uid := r.userID.Load(); uid != nil {
		return *uid
	}

	return ""
}
