// Package trace resolves the per-request trace identity: the trace id, the step id within
// that trace, the sampling ("color") flag and whether the caller looks like a bot.
package trace

import (
	"crypto/md5" //nolint:gosec
	"encoding/hex"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

const (
	// HeaderTraceID carries the trace id on both requests and responses.
	HeaderTraceID = "X-Trace-Id"
	// HeaderMonitor marks a request as sampled when present.
	HeaderMonitor = "X-Monitor"
	// ParamTraceID is the reserved query parameter that carries a trace id.
	ParamTraceID = "_traceId"
	// ParamColor is the reserved query parameter that marks a request as sampled.
	ParamColor = "_color"
	// CookieColor is the cookie that keeps a browser session sampled.
	CookieColor = "_color"

	// DefaultStepID is used when a trace id carries no step.
	DefaultStepID = "0"

	// MinTrustedLen is the shortest inbound trace id that is accepted as is.
	MinTrustedLen = 16
)

// Params is the read access to request parameters that resolution needs.
type Params interface {
	Get(name string) string
	Has(name string) bool
}

// Context is the resolved trace identity of one request.
type Context struct {
	TraceID string
	StepID  string
	Color   bool
	Bot     bool
}

// Resolver resolves trace contexts. Its zero value is not usable, use NewResolver.
type Resolver struct {
	serverIP string
	pid      int
	seq      atomic.Uint64
	now      func() time.Time
}

// NewResolver returns a resolver that mixes serverIP into synthesized ids.
func NewResolver(serverIP string) *Resolver {
	return &Resolver{serverIP: serverIP, pid: os.Getpid(), now: time.Now}
}

// Resolve reads the trace identity of r. Parameters are read through params, which must
// already decode with the request's resolved encoding.
func (res *Resolver) Resolve(r *http.Request, params Params) Context {
	id := r.Header.Get(HeaderTraceID)
	if len(id) < MinTrustedLen {
		id = params.Get(ParamTraceID)
	}

	if len(id) < MinTrustedLen {
		id = res.Synthesize(r)
	}

	tc := Context{TraceID: id, StepID: DefaultStepID}
	// a leading separator is part of the id, never an empty id with a step
	if pos := strings.LastIndexByte(id, ':'); pos > 0 {
		tc.TraceID = id[:pos]
		if step := id[pos+1:]; step != "" {
			tc.StepID = step
		}
	}

	tc.Color = IsColored(r, params)
	tc.Bot = IsBot(r.UserAgent())

	return tc
}

// Synthesize derives a fresh trace id as the hex MD5 of the current time in milliseconds,
// a per-resolver sequence number, the process id, the server address and the request path
// with its raw query.
func (res *Resolver) Synthesize(r *http.Request) string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatInt(res.now().UnixMilli(), 10))
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatUint(res.seq.Add(1), 10))
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(res.pid))
	sb.WriteByte('|')
	sb.WriteString(res.serverIP)
	sb.WriteByte('|')
	sb.WriteString(r.URL.Path)

	if r.URL.RawQuery != "" {
		sb.WriteByte('?')
		sb.WriteString(r.URL.RawQuery)
	}

	sum := md5.Sum([]byte(sb.String())) //nolint:gosec

	return hex.EncodeToString(sum[:])
}

// IsColored reports whether the request is sampled: by the _color parameter, the
// X-Monitor header or the _color=1 cookie.
func IsColored(r *http.Request, params Params) bool {
	if params.Has(ParamColor) || r.Header.Get(HeaderMonitor) != "" {
		return true
	}

	c, err := r.Cookie(CookieColor)

	return err == nil && c.Value == "1"
}

// IsBot reports whether the user agent names a crawler.
func IsBot(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	return strings.Contains(ua, "spider") || strings.Contains(ua, "bot")
}

// ColorCookie returns the cookie that keeps a sampled client sampled for an hour.
func ColorCookie() *http.Cookie {
	return &http.Cookie{Name: CookieColor, Value: "1", Path: "/", MaxAge: int(time.Hour / time.Second)}
}
