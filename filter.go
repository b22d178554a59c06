package bfilter

import (
	"net/http"
	"strings"
	"time"

	"github.com/advdv/bfilter/charset"
	"github.com/advdv/bfilter/report"
	"github.com/advdv/bfilter/trace"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"golang.org/x/net/http/httpguts"
)

// StatusRecorder receives the outcome of every filtered request.
type StatusRecorder interface {
	Record(uri string, cost time.Duration, status int, bot bool)
}

// Filter runs requests through the interception pipeline: static paths are passed through
// untouched, every other request gets its query encoding detected, its trace identity
// resolved and its response captured, and is then finalized, reported and counted.
type Filter struct {
	cfg      Config
	logs     Logger
	resolver *trace.Resolver
	rec      StatusRecorder
	sink     report.Sink

	static      map[string]struct{}
	multiStatic []string
}

// NewFilter creates a filter. The recorder and sink may be nil.
func NewFilter(cfg Config, logs Logger, rec StatusRecorder, sink report.Sink) *Filter {
	if cfg.ServerIP == "" {
		cfg.ServerIP = trace.LocalIP()
	}

	if logs == nil {
		logs = NewStdLogger(nil)
	}

	if sink == nil {
		sink = report.Discard
	}

	suffixes := lo.Uniq(lo.FilterMap(cfg.StaticSuffixes, func(s string, _ int) (string, bool) {
		s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
		return s, s != ""
	}))

	return &Filter{
		cfg:      cfg,
		logs:     logs,
		resolver: trace.NewResolver(cfg.ServerIP),
		rec:      rec,
		sink:     sink,
		static:   lo.SliceToMap(suffixes, func(s string) (string, struct{}) { return s, struct{}{} }),
		multiStatic: lo.Filter(suffixes, func(s string, _ int) bool {
			return strings.Contains(s, ".")
		}),
	}
}

// Config returns the configuration the filter runs with.
func (f *Filter) Config() Config { return f.cfg }

// IsStatic reports whether path ends in one of the static suffixes.
func (f *Filter) IsStatic(path string) bool {
	dot := strings.LastIndexByte(path, '.')
	if dot < 0 || strings.IndexByte(path[dot:], '/') >= 0 {
		return false
	}

	lower := strings.ToLower(path)
	if _, ok := f.static[lower[dot+1:]]; ok {
		return true
	}

	return lo.ContainsBy(f.multiStatic, func(s string) bool {
		return strings.HasSuffix(lower, "."+s)
	})
}

// Wrap turns next into a standard handler behind the filter. Handler failures are reported
// to the logger.
func (f *Filter) Wrap(next BareHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := f.Serve(w, r, next); err != nil {
			f.logs.LogUnhandledServeError(err)
		}
	})
}

// Handler puts a standard library handler behind the filter.
func (f *Filter) Handler(h http.Handler) http.Handler {
	return f.Wrap(FromStd(h))
}

// Serve runs one request through the pipeline. A handler that fails, by returning an error
// that is not an *Error or by panicking, gets a 500 response and its error is returned
// wrapped with the request URL once the response is finalized and the request counted.
func (f *Filter) Serve(w http.ResponseWriter, r *http.Request, next BareHandler) error {
	if f.IsStatic(r.URL.Path) {
		return f.serveDirect(w, r, next)
	}

	if _, ok := FromContext(r.Context()); ok {
		if rw, ok := w.(ResponseWriter); ok {
			return next.ServeBareBFilter(rw, r)
		}

		return f.serveDirect(w, r, next)
	}

	req := newRequest(time.Now(), charset.NewParams(r.URL.RawQuery))

	// the trace id may come from a query parameter, which can only be decoded once the
	// query's encoding is known.
	req.params.Encoding()
	req.trace = f.resolver.Resolve(r, req.params)

	r = r.WithContext(withRequest(r.Context(), req))
	url := requestURL(r)

	capture := NewCapture(w, CaptureOptions{
		Gzip:        f.acceptsGzip(r),
		GzipLevel:   f.cfg.GzipLevel,
		BufferLimit: f.cfg.BufferLimit,
		Logger:      f.logs,
	})
	defer capture.Free()

	serveErr := f.serveCaptured(capture, handlerRequest(r, req, capture), next)
	if serveErr != nil {
		serveErr = errors.Wrapf(serveErr, "serve %s", url)
	} else if req.Colored() {
		http.SetCookie(capture, trace.ColorCookie())
	}

	if err := capture.Finalize(req.TraceID()); err != nil {
		f.logs.LogFinalizeError(url, req.Cost(), err)
	}

	if req.Colored() {
		f.sink.Publish(r.Context(), f.accessRecord(r, req, capture, url))
	}

	if f.rec != nil {
		f.rec.Record(r.URL.Path, req.Cost(), capture.Status(), req.IsBot())
	}

	return serveErr
}

func (f *Filter) serveCaptured(c *Capture, r *http.Request, next BareHandler) error {
	err := serveSafe(next, c, r)
	if err == nil {
		return nil
	}

	if !c.Committed() {
		c.Reset()
	}

	if herr, ok := asError(err); ok {
		c.SendError(herr.Code().Status(), herr.Message())
		return nil
	}

	c.SendError(http.StatusInternalServerError, "")

	return err
}

func (f *Filter) serveDirect(w http.ResponseWriter, r *http.Request, next BareHandler) error {
	dw := newDirectWriter(w)

	err := serveSafe(next, dw, r)
	if err == nil {
		return nil
	}

	status, msg := http.StatusInternalServerError, ""
	if herr, ok := asError(err); ok {
		status, msg, err = herr.Code().Status(), herr.Message(), nil
	} else {
		err = errors.Wrapf(err, "serve %s", requestURL(r))
	}

	if !dw.wroteHeader {
		dw.SendError(status, msg)
	}

	return err
}

// handlerRequest prepares the request the handler sees. Its query is re-encoded in UTF-8 so
// that r.URL.Query and r.FormValue decode what Request.Params decodes, and Accept-Encoding
// is dropped while the capture compresses so the body is not encoded twice. The request r
// keeps the original query and headers for reporting.
func handlerRequest(r *http.Request, req *Request, c *Capture) *http.Request {
	query := req.params.UTF8Query()
	if query == r.URL.RawQuery && !c.Compressed() {
		return r
	}

	hr := r.Clone(r.Context())
	if query != r.URL.RawQuery {
		hr.URL.RawQuery = query
		hr.Form = nil
	}

	if c.Compressed() {
		hr.Header.Del("Accept-Encoding")
	}

	return hr
}

func (f *Filter) acceptsGzip(r *http.Request) bool {
	return f.cfg.Gzip && httpguts.HeaderValuesContainsToken(r.Header["Accept-Encoding"], "gzip")
}

func (f *Filter) accessRecord(r *http.Request, req *Request, c *Capture, url string) report.AccessRecord {
	return report.AccessRecord{
		Time:      req.Start(),
		Cost:      req.Cost().Milliseconds(),
		TraceID:   req.TraceID(),
		StepID:    req.StepID(),
		ClientIP:  trace.ClientIP(r),
		ServerIP:  f.cfg.ServerIP,
		Profile:   f.cfg.Profile,
		Status:    c.Status(),
		Size:      c.Sent(),
		Referer:   r.Referer(),
		UserAgent: r.UserAgent(),
		Cookie:    r.Header.Get("Cookie"),
		UserID:    req.UserID(),
		URL:       url,
	}
}

// serveSafe turns a panicking handler into a returned error.
func serveSafe(next BareHandler, w ResponseWriter, r *http.Request) (err error) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}

		if perr, ok := v.(error); ok {
			err = errors.Wrap(perr, "handler panicked")
		} else {
			err = errors.Newf("handler panicked: %v", v)
		}
	}()

	return next.ServeBareBFilter(w, r)
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return scheme + "://" + r.Host + r.URL.RequestURI()
}
