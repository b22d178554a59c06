package bfilter_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/advdv/bfilter"
	"github.com/advdv/bfilter/internal/buffer"
	"github.com/advdv/bfilter/trace"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

type pathKey struct{}

func newMountMux(t *testing.T) (*bfilter.ServeMux, *bfilter.TestLogger, *statusRecorder) {
	t.Helper()

	f, logs, rec, _ := newTestFilter(t)

	return bfilter.NewServeMuxWith(f, http.NewServeMux()), logs, rec
}

func TestMountStripsPrefix(t *testing.T) {
	show := func(w bfilter.ResponseWriter, r *http.Request) error {
		fmt.Fprintf(w, "path:%s", r.URL.Path)
		return nil
	}

	for name, mount := range map[string]func(*bfilter.ServeMux){
		"bare": func(m *bfilter.ServeMux) { m.MountBare("/api", bfilter.BareHandlerFunc(show)) },
		"handler": func(m *bfilter.ServeMux) {
			m.Mount("/api", bfilter.HandlerFunc(func(_ context.Context, w bfilter.ResponseWriter, r *http.Request) error {
				return show(w, r)
			}))
		},
		"func": func(m *bfilter.ServeMux) {
			m.MountFunc("/api", func(_ context.Context, w bfilter.ResponseWriter, r *http.Request) error {
				return show(w, r)
			})
		},
		"std": func(m *bfilter.ServeMux) {
			m.MountStd("/api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, "path:%s", r.URL.Path)
			}))
		},
	} {
		t.Run(name, func(t *testing.T) {
			mux, _, _ := newMountMux(t)
			mount(mux)

			for path, exp := range map[string]string{
				"/api":              "path:/",
				"/api/":             "path:/",
				"/api/users":        "path:/users",
				"/api/v1/users/123": "path:/v1/users/123",
			} {
				rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil)
				mux.ServeHTTP(rec, req)

				require.Equal(t, http.StatusOK, rec.Code, path)
				require.Equal(t, exp, rec.Body.String(), path)
				require.NotEmpty(t, rec.Header().Get(trace.HeaderTraceID), path)
			}
		})
	}
}

func TestMountFilterSeesOriginalPath(t *testing.T) {
	mux, _, statuses := newMountMux(t)
	mux.Use(func(next bfilter.BareHandler) bfilter.BareHandler {
		return bfilter.BareHandlerFunc(func(w bfilter.ResponseWriter, r *http.Request) error {
			return next.ServeBareBFilter(w, r.WithContext(context.WithValue(r.Context(), pathKey{}, r.URL.Path)))
		})
	})

	mux.MountBare("/shop", bfilter.BareHandlerFunc(func(w bfilter.ResponseWriter, r *http.Request) error {
		fmt.Fprintf(w, "mw:%s,handler:%s", r.Context().Value(pathKey{}), r.URL.Path)
		return nil
	}))

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/shop/items/12345", nil)
	mux.ServeHTTP(rec, req)

	require.Equal(t, "mw:/shop/items/12345,handler:/items/12345", rec.Body.String())
	require.Equal(t, []recorded{{"/shop/items/12345", http.StatusOK, false}}, statuses.calls)
}

func TestMountCapturedAndCompressed(t *testing.T) {
	mux, _, _ := newMountMux(t)
	mux.MountStd("/docs", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=ISO-8859-1")
		fmt.Fprintf(w, "doc %s accept=%q", r.URL.Path, r.Header.Get("Accept-Encoding"))
	}))

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/docs/intro", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	mux.ServeHTTP(rec, req)

	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	require.Equal(t, "text/plain; charset=UTF-8", rec.Header().Get("Content-Type"))

	plain, err := buffer.Decompress(rec.Body.Bytes())
	require.NoError(t, err)
	require.Equal(t, `doc /intro accept=""`, string(plain))
}

func TestMountStaticBypass(t *testing.T) {
	mux, _, statuses := newMountMux(t)
	mux.MountStd("/assets", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "asset:%s", r.URL.Path)
	}))

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/assets/app.css", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	mux.ServeHTTP(rec, req)

	require.Equal(t, "asset:/app.css", rec.Body.String())
	require.Empty(t, rec.Header().Get("Content-Encoding"))
	require.Empty(t, rec.Header().Get(trace.HeaderTraceID))
	require.Empty(t, statuses.calls)
}

func TestMountErrors(t *testing.T) {
	mux, logs, statuses := newMountMux(t)
	mux.MountFunc("/api", func(_ context.Context, _ bfilter.ResponseWriter, r *http.Request) error {
		if r.URL.Path == "/missing" {
			return bfilter.NewError(bfilter.CodeNotFound, errors.New("not found"))
		}

		return errors.New("mount error")
	})

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/missing", nil)
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not found\n", rec.Body.String())
	require.Zero(t, logs.NumLogUnhandledServeError)

	rec, req = httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/fail", nil)
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Internal Server Error\n", rec.Body.String())
	require.Equal(t, int64(1), logs.NumLogUnhandledServeError)

	require.Equal(t, []recorded{
		{"/api/missing", http.StatusNotFound, false},
		{"/api/fail", http.StatusInternalServerError, false},
	}, statuses.calls)
}

func TestMountStdQueryEncoding(t *testing.T) {
	mux, _, _ := newMountMux(t)
	mux.MountStd("/search", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s:%s", r.URL.Path, r.FormValue("q"))
	}))

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/search/books?q=%C4%E3%BA%C3", nil)
	mux.ServeHTTP(rec, req)

	require.Equal(t, "/books:你好", rec.Body.String())
}

func TestMountWithMethodPattern(t *testing.T) {
	mux, _, _ := newMountMux(t)
	mux.MountFunc("POST /api", func(_ context.Context, w bfilter.ResponseWriter, r *http.Request) error {
		fmt.Fprintf(w, "posted:%s", r.URL.Path)
		return nil
	})

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/create", nil)
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "posted:/create", rec.Body.String())

	rec, req = httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/create", nil)
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMountUseAfterMount(t *testing.T) {
	mux, _, _ := newMountMux(t)
	mux.MountBare("/api", bfilter.BareHandlerFunc(hello))

	require.PanicsWithValue(t, "bfilter: cannot call Use() after calling Handle", func() {
		mux.Use(middleware1)
	})
}
