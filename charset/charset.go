// Package charset detects which text encoding a request's query string was percent-encoded
// with, and reads request parameters through that encoding.
//
// Browsers and hand written links do not declare the encoding of a query string. Detection
// therefore runs in a fixed order: an explicit hint parameter (ie=, enc= or encoding=),
// a strict UTF-8 probe of the escaped bytes, a strict GBK probe, and finally UTF-8.
package charset

import (
	"bytes"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

// ErrUnsupportedEncoding is returned when a charset label cannot be mapped to an encoding.
var ErrUnsupportedEncoding = errors.New("unsupported encoding")

// Encoding is a named text encoding. The zero value is not a valid encoding.
type Encoding struct {
	name string
	enc  encoding.Encoding
}

var (
	// UTF8 is the default encoding.
	UTF8 = Encoding{name: "UTF-8", enc: unicode.UTF8}
	// GBK is the secondary encoding probed when a query is not valid UTF-8.
	GBK = Encoding{name: "GBK", enc: simplifiedchinese.GBK}
)

// Name returns the canonical, upper-case name such as "UTF-8" or "GBK".
func (e Encoding) Name() string { return e.name }

// IsZero reports whether e is the zero value.
func (e Encoding) IsZero() bool { return e.enc == nil }

// IsUTF8 reports whether e is UTF-8.
func (e Encoding) IsUTF8() bool { return e.name == UTF8.name }

// IsLatin1 reports whether e is the single-byte Latin-1 encoding. Every iso-8859-1, latin1
// and us-ascii label resolves to it.
func (e Encoding) IsLatin1() bool { return e.name == latin1Name }

// String implements fmt.Stringer.
func (e Encoding) String() string { return e.name }

// Encoder returns a fresh encoder from UTF-8 text to e.
func (e Encoding) Encoder() *encoding.Encoder { return e.enc.NewEncoder() }

// Decode converts p from e to UTF-8. Invalid sequences become U+FFFD.
func (e Encoding) Decode(p []byte) string {
	if e.IsZero() || e.IsUTF8() {
		return string(p)
	}

	out, err := e.enc.NewDecoder().Bytes(p)
	if err != nil {
		return string(p)
	}

	return string(out)
}

// DecodeStrict converts p from e to UTF-8 and fails on any malformed or unmappable
// sequence instead of substituting it.
func (e Encoding) DecodeStrict(p []byte) (string, error) {
	if e.IsUTF8() {
		if !utf8.Valid(p) {
			return "", errors.Newf("invalid %s byte sequence", e.name)
		}

		return string(p), nil
	}

	out, err := e.enc.NewDecoder().Bytes(p)
	if err != nil {
		return "", errors.Wrapf(err, "decode %s", e.name)
	}

	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", errors.Newf("invalid %s byte sequence", e.name)
	}

	return string(out), nil
}

const latin1Name = "WINDOWS-1252"

var lookups sync.Map // lower-case label -> Encoding

// Lookup maps a charset label ("gbk", "utf8", "GB2312", ...) to an Encoding using the
// WHATWG encoding index. Results are cached for the life of the process.
func Lookup(label string) (Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(label))
	if v, ok := lookups.Load(key); ok {
		return v.(Encoding), nil //nolint:forcetypeassert
	}

	enc, err := htmlindex.Get(key)
	if err != nil {
		return Encoding{}, errors.WithSecondaryError(errors.Wrapf(ErrUnsupportedEncoding, "lookup %q", label), err)
	}

	name, err := htmlindex.Name(enc)
	if err != nil {
		return Encoding{}, errors.WithSecondaryError(errors.Wrapf(ErrUnsupportedEncoding, "name of %q", label), err)
	}

	res := Encoding{name: strings.ToUpper(name), enc: enc}
	if res.name == UTF8.name {
		res = UTF8
	}

	v, _ := lookups.LoadOrStore(key, res)
	return v.(Encoding), nil //nolint:forcetypeassert
}
