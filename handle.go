package bfilter

import (
	"context"
	"io"
	"net/http"
)

// ResponseWriter implements http.ResponseWriter but holds the response back until the
// filter finalizes it. This allows handlers and middleware to redirect, fail or reset the
// response at any point before that.
type ResponseWriter interface {
	http.ResponseWriter

	// Status returns the status that will be sent.
	Status() int
	// Redirect sends a 302 to location. Body writes after it are dropped.
	Redirect(location string)
	// SendError turns the response into an error page. Body writes after it are dropped.
	SendError(code int, msg string)
	// TextWriter returns a writer that encodes UTF-8 text into the response's character
	// encoding. The encoding cannot change once it is used.
	TextWriter() io.Writer
	// SetContentType sets the Content-Type header, never declaring ISO-8859-1.
	SetContentType(ct string)
	// SetCharacterEncoding sets the response's character encoding by name.
	SetCharacterEncoding(name string)
	// Reset drops everything written so far.
	Reset()
	// FlushBuffer ends the body: it closes the text writer and the compression stream.
	FlushBuffer() error
	// Free releases the buffer.
	Free()
}

// Handler serves requests with a buffered response and may return an error.
type Handler interface {
	ServeBFilter(ctx context.Context, w ResponseWriter, r *http.Request) error
}

// HandlerFunc allow casting a function to implement [Handler].
type HandlerFunc func(context.Context, ResponseWriter, *http.Request) error

// ServeBFilter implements the [Handler] interface.
func (f HandlerFunc) ServeBFilter(ctx context.Context, w ResponseWriter, r *http.Request) error {
	return f(ctx, w, r)
}

// BareHandler is what middleware wraps. Unlike [Handler] it takes its context from the
// request.
type BareHandler interface {
	ServeBareBFilter(w ResponseWriter, r *http.Request) error
}

// BareHandlerFunc allow casting a function to an implementation of [BareHandler].
type BareHandlerFunc func(ResponseWriter, *http.Request) error

// ServeBareBFilter implements the [BareHandler] interface.
func (f BareHandlerFunc) ServeBareBFilter(w ResponseWriter, r *http.Request) error {
	return f(w, r)
}

// ToBare converts a handler into a bare handler that passes the request context on.
func ToBare(h Handler) BareHandler {
	return BareHandlerFunc(func(w ResponseWriter, r *http.Request) error {
		return h.ServeBFilter(r.Context(), w, r)
	})
}

// ToStd converts a bare handler into a standard library http.Handler that runs every
// request through the filter.
func ToStd(h BareHandler, f *Filter) http.Handler {
	return f.Wrap(h)
}

// FromStd adapts a standard library handler. Its writes go to the buffered response.
func FromStd(h http.Handler) BareHandler {
	return BareHandlerFunc(func(w ResponseWriter, r *http.Request) error {
		h.ServeHTTP(w, r)
		return nil
	})
}
