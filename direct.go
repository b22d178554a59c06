package bfilter

import (
	"io"
	"net/http"
)

// directWriter is the ResponseWriter for requests that bypass the filter. It writes
// straight through to the real writer, so nothing can be reset or re-encoded.
type directWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func newDirectWriter(w http.ResponseWriter) *directWriter {
	return &directWriter{ResponseWriter: w, status: http.StatusOK}
}

func (w *directWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}

	w.status, w.wroteHeader = code, true
	w.ResponseWriter.WriteHeader(code)
}

func (w *directWriter) Write(p []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(p) //nolint:wrapcheck
}

func (w *directWriter) Status() int { return w.status }

func (w *directWriter) Redirect(location string) {
	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusFound)
}

func (w *directWriter) SendError(code int, msg string) {
	if msg == "" {
		msg = http.StatusText(code)
	}

	http.Error(w, msg, code)
}

func (w *directWriter) TextWriter() io.Writer { return w }

func (w *directWriter) SetContentType(ct string) {
	ct, _ = rewriteLegacyCharset(ct)
	w.Header().Set("Content-Type", ct)
}

func (w *directWriter) SetCharacterEncoding(string) {}

func (w *directWriter) Reset() {
	if !w.wroteHeader {
		clear(w.Header())
	}
}

func (w *directWriter) FlushBuffer() error { return nil }

func (w *directWriter) Free() {}

func (w *directWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

var _ ResponseWriter = &directWriter{}
