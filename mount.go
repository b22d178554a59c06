package bfilter

import (
	"net/http"
	"net/url"
	"strings"
)

// Mount mounts a Handler on a sub-path pattern. The mounted handler receives
// requests with the mount prefix stripped from the path.
func (m *ServeMux) Mount(pattern string, handler Handler) {
	m.MountBare(pattern, ToBare(handler))
}

// MountFunc mounts a HandlerFunc on a sub-path pattern.
func (m *ServeMux) MountFunc(pattern string, handler HandlerFunc) {
	m.Mount(pattern, handler)
}

// MountStd mounts a standard library [http.Handler] on a sub-path pattern.
func (m *ServeMux) MountStd(pattern string, handler http.Handler) {
	m.MountBare(pattern, FromStd(handler))
}

// MountBare mounts a BareHandler on a sub-path pattern. The filter and the middleware
// registered via Use() see the original path; the prefix is stripped after them.
func (m *ServeMux) MountBare(pattern string, handler BareHandler) {
	method, path := splitMethodPattern(pattern)

	stdHandler := ToStd(wrapBare(stripPrefixBare(path, handler), m.middlewares.buffered...), m.filter)

	m.handle(method+path, stdHandler)
	m.handle(method+path+"/", stdHandler)
}

func splitMethodPattern(pattern string) (method, path string) {
	if idx := strings.LastIndex(pattern, "/"); idx > 0 {
		prefix := pattern[:idx]
		if spaceIdx := strings.Index(prefix, " "); spaceIdx >= 0 {
			return pattern[:spaceIdx+1], pattern[spaceIdx+1:]
		}
	}

	return "", pattern
}

func stripPrefixBare(prefix string, handler BareHandler) BareHandler {
	return BareHandlerFunc(func(w ResponseWriter, r *http.Request) error {
		p := strings.TrimPrefix(r.URL.Path, prefix)
		if p == "" {
			p = "/"
		}

		rp := ""
		if r.URL.RawPath != "" {
			if rp = strings.TrimPrefix(r.URL.RawPath, prefix); rp == "" {
				rp = "/"
			}
		}

		r2 := r.Clone(r.Context())
		r2.URL = new(url.URL)
		*r2.URL = *r.URL
		r2.URL.Path, r2.URL.RawPath = p, rp

		return handler.ServeBareBFilter(w, r2)
	})
}
