package trace_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/advdv/bfilter/charset"
	"github.com/advdv/bfilter/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolve(t *testing.T, r *http.Request) trace.Context {
	t.Helper()
	return trace.NewResolver("10.0.0.1").Resolve(r, charset.NewParams(r.URL.RawQuery))
}

func TestResolveTraceID(t *testing.T) {
	t.Parallel()

	t.Run("header wins over param", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/?_traceId=param-trace-id-0001:3", nil)
		r.Header.Set(trace.HeaderTraceID, "header-trace-id-001:1.2")

		tc := resolve(t, r)
		assert.Equal(t, "header-trace-id-001", tc.TraceID)
		assert.Equal(t, "1.2", tc.StepID)
	})

	t.Run("short header falls back to param", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/?_traceId=param-trace-id-0001", nil)
		r.Header.Set(trace.HeaderTraceID, "short")

		tc := resolve(t, r)
		assert.Equal(t, "param-trace-id-0001", tc.TraceID)
		assert.Equal(t, trace.DefaultStepID, tc.StepID)
	})

	t.Run("split at the last separator", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(trace.HeaderTraceID, "svc:abcdefabcdefabcdef:7")

		tc := resolve(t, r)
		assert.Equal(t, "svc:abcdefabcdefabcdef", tc.TraceID)
		assert.Equal(t, "7", tc.StepID)
	})

	t.Run("empty step defaults", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(trace.HeaderTraceID, "abcdefabcdefabcdef:")

		tc := resolve(t, r)
		assert.Equal(t, "abcdefabcdefabcdef", tc.TraceID)
		assert.Equal(t, trace.DefaultStepID, tc.StepID)
	})

	t.Run("leading separator keeps the id", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(trace.HeaderTraceID, ":0123456789abcdef")

		tc := resolve(t, r)
		assert.Equal(t, ":0123456789abcdef", tc.TraceID)
		assert.Equal(t, trace.DefaultStepID, tc.StepID)
	})

	t.Run("synthesized when absent", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/item/1?_traceId=short", nil)

		tc := resolve(t, r)
		assert.Len(t, tc.TraceID, 32)
		assert.Equal(t, trace.DefaultStepID, tc.StepID)
	})
}

func TestSynthesizeUnique(t *testing.T) {
	t.Parallel()

	res := trace.NewResolver("10.0.0.1")
	r := httptest.NewRequest(http.MethodGet, "/same?q=1", nil)

	var mu sync.Mutex
	seen := map[string]bool{}

	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := res.Synthesize(r)

			mu.Lock()
			defer mu.Unlock()
			seen[id] = true
		}()
	}
	wg.Wait()

	require.Len(t, seen, 64)
}

func TestColor(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name  string
		setup func(r *http.Request)
		query string
		exp   bool
	}{
		{"none", func(*http.Request) {}, "", false},
		{"param", func(*http.Request) {}, "?_color", true},
		{"header", func(r *http.Request) { r.Header.Set(trace.HeaderMonitor, "1") }, "", true},
		{"cookie", func(r *http.Request) { r.AddCookie(trace.ColorCookie()) }, "", true},
		{"cookie other value", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: trace.CookieColor, Value: "0"})
		}, "", false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			tt.setup(r)
			assert.Equal(t, tt.exp, resolve(t, r).Color)
		})
	}
}

func TestIsBot(t *testing.T) {
	t.Parallel()

	assert.True(t, trace.IsBot("Mozilla/5.0 (compatible; Googlebot/2.1)"))
	assert.True(t, trace.IsBot("Baiduspider"))
	assert.False(t, trace.IsBot("Mozilla/5.0 (X11; Linux x86_64)"))
	assert.False(t, trace.IsBot(""))
}

func TestColorCookie(t *testing.T) {
	t.Parallel()

	c := trace.ColorCookie()
	assert.Equal(t, 3600, c.MaxAge)
	assert.Equal(t, "/", c.Path)
	assert.True(t, strings.HasPrefix(c.String(), "_color=1"))
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.9:5123"
	assert.Equal(t, "192.168.1.9", trace.ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", trace.ClientIP(r))

	r.Header.Set("X-Forwarded-For", "1.2.3")
	assert.Equal(t, "192.168.1.9", trace.ClientIP(r))
}

func TestLocalIP(t *testing.T) {
	t.Parallel()

	assert.NotEmpty(t, trace.LocalIP())
}
