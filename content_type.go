package bfilter

import (
	"strings"

	"github.com/advdv/bfilter/charset"
)

const (
	// DefaultContentType is used for responses that never set one.
	DefaultContentType = "text/html; charset=UTF-8"

	utf8Charset = "UTF-8"
)

// NormalizeContentType makes sure ct declares a charset and never declares Latin-1.
// An empty ct becomes text/html in UTF-8. A ct without a charset gets enc appended, or
// UTF-8 when enc is empty or Latin-1. A Latin-1 charset value already present, such as
// ISO-8859-1, is replaced in place by UTF-8, leaving the rest of ct untouched. Normalizing
// twice changes nothing.
func NormalizeContentType(ct, enc string) string {
	if strings.TrimSpace(ct) == "" {
		return DefaultContentType
	}

	if enc == "" || isLegacyCharset(enc) {
		enc = utf8Charset
	}

	start, end := charsetSpan(ct)
	switch {
	case start < 0:
		return ct + "; charset=" + enc
	case start == end:
		return ct[:start] + enc + ct[end:]
	case isLegacyCharset(ct[start:end]):
		return ct[:start] + utf8Charset + ct[end:]
	default:
		return ct
	}
}

// rewriteLegacyCharset replaces a Latin-1 charset parameter value in ct by UTF-8.
func rewriteLegacyCharset(ct string) (string, bool) {
	start, end := charsetSpan(ct)
	if start < 0 || !isLegacyCharset(ct[start:end]) {
		return ct, false
	}

	return ct[:start] + utf8Charset + ct[end:], true
}

// isLegacyCharset reports whether label names the single-byte Latin-1 encoding.
func isLegacyCharset(label string) bool {
	enc, err := charset.Lookup(label)
	return err == nil && enc.IsLatin1()
}

// charsetOf returns the charset parameter of a content type, or an empty string.
func charsetOf(ct string) string {
	start, end := charsetSpan(ct)
	if start < 0 {
		return ""
	}

	return ct[start:end]
}

// charsetSpan locates the value of the last charset parameter of ct, without surrounding
// blanks or quotes. Both results are -1 when there is none.
func charsetSpan(ct string) (start, end int) {
	start, end = -1, -1

	for off := strings.IndexByte(ct, ';'); off >= 0; {
		param := ct[off+1:]
		next := strings.IndexByte(param, ';')
		if next >= 0 {
			param = param[:next]
		}

		if k, _, ok := strings.Cut(param, "="); ok && strings.EqualFold(strings.TrimSpace(k), "charset") {
			s, e := off+1+len(k)+1, off+1+len(param)
			for s < e && (ct[s] == ' ' || ct[s] == '"') {
				s++
			}

			for e > s && (ct[e-1] == ' ' || ct[e-1] == '"') {
				e--
			}

			start, end = s, e
		}

		if next < 0 {
			break
		}

		off += 1 + next
	}

	return start, end
}
