package bfilter

import (
	"log"
	"net/http"
)

// ServeMux is an HTTP multiplexer whose routes are served behind a Filter.
type ServeMux struct {
	filter      *Filter
	mux         *http.ServeMux
	middlewares struct {
		captured bool
		buffered []Middleware
	}
}

// NewServeMux creates a ServeMux with the default filter configuration, no status recorder
// and no report sink.
func NewServeMux() *ServeMux {
	return NewServeMuxWith(NewFilter(DefaultConfig(), NewStdLogger(log.Default()), nil, nil), http.NewServeMux())
}

// NewServeMuxWith creates a ServeMux with a custom filter and base mux.
func NewServeMuxWith(filter *Filter, baseMux *http.ServeMux) *ServeMux {
	return &ServeMux{filter: filter, mux: baseMux}
}

// Filter returns the filter that routes are served behind.
func (m *ServeMux) Filter() *Filter { return m.filter }

// Use allows providing of middleware.
func (m *ServeMux) Use(mw ...Middleware) {
	m.ensureNoUseAfterHandle()
	m.middlewares.buffered = append(m.middlewares.buffered, mw...)
}

// HandleFunc handles the request given the pattern using a function.
func (m *ServeMux) HandleFunc(pattern string, handler HandlerFunc) {
	m.Handle(pattern, handler)
}

// HandleStd registers a standard library [http.Handler] for the given pattern. Its writes
// are captured like any other handler's, and middleware registered via [ServeMux.Use] is
// applied.
func (m *ServeMux) HandleStd(pattern string, handler http.Handler) {
	m.handle(pattern, ToStd(wrapBare(FromStd(handler), m.middlewares.buffered...), m.filter))
}

// Handle handles the request given a handler.
func (m *ServeMux) Handle(pattern string, handler Handler) {
	m.handle(pattern, ToStd(Wrap(handler, m.middlewares.buffered...), m.filter))
}

// ServeHTTP makes the server mux implement the http.Handler interface.
func (m *ServeMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mux.ServeHTTP(w, r)
}

func (m *ServeMux) handle(pattern string, handler http.Handler) {
	m.middlewares.captured = true
	m.mux.Handle(pattern, handler)
}

func (m *ServeMux) ensureNoUseAfterHandle() {
	if m.middlewares.captured {
		panic("bfilter: cannot call Use() after calling Handle")
	}
}
