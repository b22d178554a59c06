package bfilter

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/advdv/bfilter/charset"
	"github.com/advdv/bfilter/internal/buffer"
	"github.com/advdv/bfilter/trace"
	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

var (
	// ErrAlreadyCommitted is returned by Finalize when the real response writer already sent
	// its headers, for example because a handler streamed through http.ResponseController.
	ErrAlreadyCommitted = errors.New("response already committed")
	// ErrFinalized is returned when writing to a response that has been finalized.
	ErrFinalized = errors.New("response already finalized")
)

type captureState int

const (
	stateUntouched captureState = iota
	stateWriting
	stateRedirecting
	stateErroring
	stateFinalized
)

func (s captureState) String() string {
	switch s {
	case stateUntouched:
		return "untouched"
	case stateWriting:
		return "writing"
	case stateRedirecting:
		return "redirecting"
	case stateErroring:
		return "erroring"
	case stateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// CaptureOptions configure a Capture.
type CaptureOptions struct {
	// Gzip compresses the captured body.
	Gzip bool
	// GzipLevel is the compression level, see klauspost/compress/gzip.
	GzipLevel int
	// BufferLimit caps the captured body in bytes. Zero or negative means no limit.
	BufferLimit int
	// Logger is informed when compression is unavailable or an encoding is unsupported.
	Logger Logger
}

// committer tracks whether headers were sent on the real response writer.
type committer struct {
	http.ResponseWriter
	committed bool
}

func (c *committer) WriteHeader(code int) {
	c.committed = true
	c.ResponseWriter.WriteHeader(code)
}

func (c *committer) Write(p []byte) (int, error) {
	c.committed = true
	return c.ResponseWriter.Write(p)
}

func (c *committer) FlushError() error {
	c.committed = true
	return http.NewResponseController(c.ResponseWriter).Flush() //nolint:wrapcheck
}

func (c *committer) Unwrap() http.ResponseWriter { return c.ResponseWriter }

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Capture is the buffered [ResponseWriter]. Status, headers and body are held until
// Finalize commits them to the real writer in one go. A Capture is owned by the goroutine
// serving the request and is not safe for concurrent use.
type Capture struct {
	real *committer
	logs Logger

	header   http.Header
	status   int
	state    captureState
	location string
	errMsg   string

	enc       charset.Encoding
	encLocked bool
	text      io.WriteCloser

	buf     *buffer.Buffer
	gz      *buffer.GzipSink
	encoded bool // the handler set its own Content-Encoding
	flushed bool
	sent    int64
}

// NewCapture creates a capture in front of real.
func NewCapture(real http.ResponseWriter, opts CaptureOptions) *Capture {
	logs := opts.Logger
	if logs == nil {
		logs = NewStdLogger(nil)
	}

	limit := opts.BufferLimit
	if limit <= 0 {
		limit = -1
	}

	c := &Capture{
		real:   &committer{ResponseWriter: real},
		logs:   logs,
		header: http.Header{},
		status: http.StatusOK,
		buf:    buffer.New(limit),
	}

	if opts.Gzip {
		gz, err := buffer.NewGzipSink(c.buf, opts.GzipLevel)
		if err != nil {
			logs.LogCompressionUnavailable(err)
		} else {
			c.gz = gz
		}
	}

	return c
}

// Header implements http.ResponseWriter.
func (c *Capture) Header() http.Header { return c.header }

// WriteHeader stores the status. It is ignored once the response redirects or fails.
func (c *Capture) WriteHeader(code int) {
	if c.state == stateRedirecting || c.state == stateErroring || c.state == stateFinalized {
		return
	}

	c.status = code
}

// Status returns the status that will be sent.
func (c *Capture) Status() int { return c.status }

// Write appends p to the body. Writes after Redirect or SendError are dropped.
func (c *Capture) Write(p []byte) (int, error) {
	switch c.state {
	case stateRedirecting, stateErroring:
		return len(p), nil
	case stateFinalized:
		return 0, ErrFinalized
	case stateUntouched, stateWriting:
	}

	if c.state == stateUntouched {
		ce := c.header.Get("Content-Encoding")
		c.encoded = ce != "" && !strings.EqualFold(ce, "identity")
	}

	c.state = stateWriting
	if c.compressing() {
		return c.gz.Write(p) //nolint:wrapcheck
	}

	return c.buf.Write(p) //nolint:wrapcheck
}

// Redirect makes the response a 302 to location.
func (c *Capture) Redirect(location string) {
	if c.state == stateFinalized {
		return
	}

	c.state, c.status, c.location = stateRedirecting, http.StatusFound, location
}

// SendError makes the response an error page with the given status and message.
func (c *Capture) SendError(code int, msg string) {
	if c.state == stateFinalized {
		return
	}

	c.state, c.status, c.errMsg = stateErroring, code, msg
}

// SetContentType sets the Content-Type header. A declared ISO-8859-1 charset is rewritten
// to UTF-8, and a declared charset becomes the response's character encoding.
func (c *Capture) SetContentType(ct string) {
	ct, _ = rewriteLegacyCharset(ct)
	c.header.Set("Content-Type", ct)

	if cs := charsetOf(ct); cs != "" {
		c.SetCharacterEncoding(cs)
	}
}

// SetCharacterEncoding sets the response's character encoding. Latin-1, under any of its
// labels, is taken as UTF-8. Unsupported names are logged and leave the encoding as it was,
// as does any call after the text writer was created.
func (c *Capture) SetCharacterEncoding(name string) {
	if c.encLocked {
		return
	}

	enc, err := responseEncoding(name)
	if err != nil {
		c.logs.LogUnsupportedEncoding(name, err)
		return
	}

	c.enc = enc
}

// Encoding returns the character encoding the response text is sent in. Without an explicit
// encoding it is the charset of the Content-Type header, however the header was set.
func (c *Capture) Encoding() charset.Encoding {
	if !c.enc.IsZero() {
		return c.enc
	}

	if cs := charsetOf(c.header.Get("Content-Type")); cs != "" {
		if enc, err := responseEncoding(cs); err == nil {
			return enc
		}
	}

	return charset.UTF8
}

// responseEncoding looks up a response charset. Latin-1 is never sent, UTF-8 is used instead.
func responseEncoding(label string) (charset.Encoding, error) {
	enc, err := charset.Lookup(label)
	if err != nil {
		return enc, err //nolint:wrapcheck
	}

	if enc.IsLatin1() {
		return charset.UTF8, nil
	}

	return enc, nil
}

// TextWriter returns the writer for UTF-8 text. It is created once and fixes the encoding.
// Characters the encoding cannot represent are written as HTML character references.
func (c *Capture) TextWriter() io.Writer {
	if c.text != nil {
		return c.text
	}

	c.enc, c.encLocked = c.Encoding(), true
	if c.enc.IsUTF8() {
		c.text = nopCloser{c}
	} else {
		c.text = transform.NewWriter(c, encoding.HTMLEscapeUnsupported(c.enc.Encoder()))
	}

	return c.text
}

// FlushBuffer ends the body: the text writer is closed and the gzip trailer written. Calling
// it again does nothing.
func (c *Capture) FlushBuffer() error {
	if c.flushed {
		return nil
	}

	c.flushed = true

	if c.text != nil {
		if err := c.text.Close(); err != nil {
			return errors.Wrap(err, "close text writer")
		}
	}

	if c.compressing() {
		if err := c.gz.Finish(); err != nil {
			return errors.Wrap(err, "finish gzip stream")
		}
	}

	return nil
}

// Finalize commits the response to the real writer. A redirect sends only the Location
// header. An error page is always sent as UTF-8 HTML. Otherwise the content type is
// normalized and a non-empty body is sent with its exact length and the X-Trace-Id header.
// Finalize fails with ErrAlreadyCommitted when the real writer already sent headers.
func (c *Capture) Finalize(traceID string) error {
	if c.state == stateFinalized {
		return nil
	}

	// a body that cannot be completed is replaced by an error page
	flushErr := c.FlushBuffer()
	if flushErr != nil && c.state != stateRedirecting && c.state != stateErroring {
		c.SendError(http.StatusInternalServerError, "")
	}

	state := c.state
	c.state = stateFinalized

	if c.real.committed {
		return errors.CombineErrors(ErrAlreadyCommitted, flushErr)
	}

	var err error

	switch state {
	case stateRedirecting:
		c.finalizeRedirect()
	case stateErroring:
		err = c.finalizeError()
	case stateUntouched, stateWriting, stateFinalized:
		err = c.finalizeBody(traceID)
	}

	return errors.CombineErrors(flushErr, err)
}

func (c *Capture) finalizeRedirect() {
	h := c.real.Header()
	c.copyHeader(h, "Content-Type", "Content-Length", "Content-Encoding")
	h.Set("Location", c.location)
	c.real.WriteHeader(c.status)
}

func (c *Capture) finalizeError() error {
	body := errorBody(c.status, c.errMsg)

	h := c.real.Header()
	c.copyHeader(h, "Content-Type", "Content-Length", "Content-Encoding")
	h.Set("Content-Type", DefaultContentType)
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Content-Length", strconv.Itoa(len(body)))
	c.real.WriteHeader(c.status)

	n, err := io.WriteString(c.real, body)
	c.sent = int64(n)

	if err != nil {
		return errors.Wrap(err, "write error page")
	}

	return nil
}

func (c *Capture) finalizeBody(traceID string) error {
	c.header.Set("Content-Type", NormalizeContentType(c.header.Get("Content-Type"), c.Encoding().Name()))

	h := c.real.Header()
	c.copyHeader(h)

	n := c.buf.Len()
	if n == 0 || !bodyAllowed(c.status) {
		h.Del("Content-Encoding")
		c.real.WriteHeader(c.status)

		return nil
	}

	if c.compressing() {
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")
	}

	if traceID != "" {
		h.Set(trace.HeaderTraceID, traceID)
	}

	h.Set("Content-Length", strconv.Itoa(n))
	c.real.WriteHeader(c.status)

	written, err := c.buf.WriteTo(c.real)
	c.sent = written

	if err != nil {
		return err //nolint:wrapcheck
	}

	if err := http.NewResponseController(c.real).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return errors.Wrap(err, "flush response")
	}

	return nil
}

func (c *Capture) copyHeader(dst http.Header, skip ...string) {
	for k, v := range c.header {
		if containsFold(skip, k) {
			continue
		}

		dst[k] = v
	}
}

// Content returns the body as text in the response's encoding. It ends the body like
// FlushBuffer does.
func (c *Capture) Content() (string, error) {
	if err := c.FlushBuffer(); err != nil {
		return "", err
	}

	b := c.buf.Bytes()
	if c.compressing() {
		var err error
		if b, err = buffer.Decompress(b); err != nil {
			return "", errors.Wrap(err, "decompress body")
		}
	}

	return c.Encoding().Decode(b), nil
}

// Reset drops status, redirect, error, headers and body, as if the response was never
// touched. It panics when the real writer already sent headers because there is nothing
// left to undo.
func (c *Capture) Reset() {
	if c.real.committed {
		panic("bfilter: cannot reset a response that was already committed")
	}

	clear(c.header)
	c.status, c.state = http.StatusOK, stateUntouched
	c.location, c.errMsg = "", ""
	c.enc, c.encLocked, c.text = charset.Encoding{}, false, nil
	c.flushed, c.sent, c.encoded = false, 0, false

	if c.gz != nil {
		c.gz.Reset()
	} else {
		c.buf.Reset()
	}
}

// Free returns the buffer to its pool.
func (c *Capture) Free() { c.buf.Free() }

// Unwrap returns the real writer so that http.ResponseController can reach it. Flushing
// through it commits the response and makes Finalize fail.
func (c *Capture) Unwrap() http.ResponseWriter { return c.real }

// Committed reports whether the real writer already sent headers.
func (c *Capture) Committed() bool { return c.real.committed }

// Compressed reports whether the body is gzip compressed by the capture. A body the handler
// encoded itself is passed through as written.
func (c *Capture) Compressed() bool { return c.compressing() }

func (c *Capture) compressing() bool { return c.gz != nil && !c.encoded }

// Len returns the number of buffered, possibly compressed, body bytes.
func (c *Capture) Len() int { return c.buf.Len() }

// Sent returns the number of body bytes written to the real writer by Finalize.
func (c *Capture) Sent() int64 { return c.sent }

// Location returns the redirect target, if any.
func (c *Capture) Location() string { return c.location }

func (c *Capture) String() string {
	return fmt.Sprintf("Capture(status=%d state=%s buffered=%d gzip=%t committed=%t)",
		c.status, c.state, c.buf.Len(), c.compressing(), c.real.committed)
}

func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status <= 199:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}

	return true
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if http.CanonicalHeaderKey(v) == http.CanonicalHeaderKey(s) {
			return true
		}
	}

	return false
}

var _ ResponseWriter = &Capture{}
