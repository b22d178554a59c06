package app

import (
	"github.com/advdv/bfilter"
	"github.com/advdv/bfilter/aggregator"
)

// Runtime provides access to app-scoped dependencies.
// Inject this into handler constructors via fx instead of pulling from context.
//
// Example:
//
//	type Handlers struct {
//	    rt *app.Runtime[Env]
//	}
//
//	func NewHandlers(rt *app.Runtime[Env]) *Handlers {
//	    return &Handlers{rt: rt}
//	}
//
//	func (h *Handlers) Stats(ctx context.Context, w bfilter.ResponseWriter, r *http.Request) error {
//	    snap, _ := h.rt.Aggregator().Lookup(r.URL.Query().Get("uri"))
//	    // ...
//	}
type Runtime[E Environment] struct {
	env    E
	filter *bfilter.Filter
	agg    *aggregator.Aggregator
}

// NewRuntime creates a new Runtime with the given dependencies.
func NewRuntime[E Environment](env E, filter *bfilter.Filter, agg *aggregator.Aggregator) *Runtime[E] {
	return &Runtime[E]{env: env, filter: filter, agg: agg}
}

// Env returns the environment configuration.
func (r *Runtime[E]) Env() E {
	return r.env
}

// Filter returns the filter that routes are served behind.
func (r *Runtime[E]) Filter() *bfilter.Filter {
	return r.filter
}

// Aggregator returns the live status aggregator.
func (r *Runtime[E]) Aggregator() *aggregator.Aggregator {
	return r.agg
}
