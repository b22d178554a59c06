package charset

import (
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
)

// Params reads request parameters from a raw query string. The encoding of the query is
// resolved on first access, exactly once, and every key and value is transcoded with it
// before any of them is returned. Params is safe for concurrent use.
type Params struct {
	query string

	once     sync.Once
	resolved atomic.Bool
	enc      Encoding
	values   url.Values
}

// NewParams returns a reader over the raw query. Nothing is parsed until first use.
func NewParams(rawQuery string) *Params {
	return &Params{query: rawQuery}
}

func (p *Params) resolve() {
	p.once.Do(func() {
		p.enc = ResolveQuery(p.query)
		p.values = parseQuery(p.query, p.enc)
		p.resolved.Store(true)
	})
}

// Query returns the raw query the parameters are read from.
func (p *Params) Query() string { return p.query }

// Encoding returns the resolved encoding of the query, resolving it if needed.
func (p *Params) Encoding() Encoding {
	p.resolve()
	return p.enc
}

// Resolved reports whether the encoding has been resolved already.
func (p *Params) Resolved() bool { return p.resolved.Load() }

// Get returns the first value for name, or an empty string.
func (p *Params) Get(name string) string {
	p.resolve()
	return p.values.Get(name)
}

// Has reports whether the query carries a parameter called name.
func (p *Params) Has(name string) bool {
	p.resolve()
	return p.values.Has(name)
}

// Values returns a copy of all decoded parameters.
func (p *Params) Values() url.Values {
	p.resolve()

	out := make(url.Values, len(p.values))
	for k, vs := range p.values {
		out[k] = append([]string(nil), vs...)
	}

	return out
}

// UTF8Query returns the query percent-encoded in UTF-8. A query that already is UTF-8 is
// returned unchanged; any other is rebuilt from the decoded parameters, in key order.
func (p *Params) UTF8Query() string {
	if p.Encoding().IsUTF8() {
		return p.query
	}

	return p.values.Encode()
}

// Reparse decodes the value of name straight from its raw, percent-encoded text in the
// query using the resolved encoding. It recovers values that a parser working with the
// wrong encoding has already mangled.
func (p *Params) Reparse(name string) string {
	raw := RawValue(p.query, name)
	if raw == "" {
		return ""
	}

	return decodeComponent(raw, p.Encoding())
}

// RawValue returns the still escaped value of the first name=... pair in query.
func RawValue(query, name string) string {
	prefix := name + "="
	for query != "" {
		var pair string
		pair, query, _ = strings.Cut(query, "&")
		if raw, ok := strings.CutPrefix(pair, prefix); ok {
			return raw
		}
	}

	return ""
}

func parseQuery(query string, enc Encoding) url.Values {
	values := url.Values{}
	for query != "" {
		var pair string
		pair, query, _ = strings.Cut(query, "&")
		if pair == "" {
			continue
		}

		key, value, _ := strings.Cut(pair, "=")
		key = decodeComponent(key, enc)
		values[key] = append(values[key], decodeComponent(value, enc))
	}

	return values
}

// decodeComponent unescapes s into raw bytes and transcodes them from enc. A malformed
// escape leaves the component as written.
func decodeComponent(s string, enc Encoding) string {
	raw, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}

	return enc.Decode([]byte(raw))
}
