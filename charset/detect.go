package charset

import (
	"regexp"
	"strings"
)

// minHintQueryLen is the query length at or below which no hint is looked for. The
// shortest hint ("ie=gbk") is longer than this.
const minHintQueryLen = 5

var hintPattern = regexp.MustCompile(`(?i)\b(?:ie|enc|encoding)=(gbk|utf8|utf-8|gb2312|gb18030)\b`)

// Hint returns the lower-cased encoding token named by an ie=, enc= or encoding= parameter
// in the raw query, or an empty string when there is none.
func Hint(query string) string {
	if len(query) <= minHintQueryLen {
		return ""
	}

	m := hintPattern.FindStringSubmatch(query)
	if m == nil {
		return ""
	}

	return strings.ToLower(m[1])
}

// ResolveQuery resolves the encoding of a raw query, taking the hint from the query itself.
func ResolveQuery(query string) Encoding {
	return Resolve(query, Hint(query))
}

// Resolve determines the encoding that the raw, still escaped, query was written in. A
// non-empty hint that names a supported encoding wins regardless of the query bytes.
// Otherwise the escaped bytes are probed strictly as UTF-8, then as GBK. UTF-8 is the
// fallback when both probes fail.
func Resolve(query, hint string) Encoding {
	if hint != "" {
		if enc, err := Lookup(hint); err == nil {
			return enc
		}
	}

	switch {
	case Probe(query, UTF8):
		return UTF8
	case Probe(query, GBK):
		return GBK
	default:
		return UTF8
	}
}

// Probe reports whether the percent-escaped bytes of query decode strictly under enc.
// Only the escaped bytes take part, starting at the first '%'. A '%' that is followed by
// fewer than two characters means the query was cut short and the probe passes. Runes
// outside Latin-1 are taken as already decoded text and split the escaped bytes into
// separately checked runs.
func Probe(query string, enc Encoding) bool {
	pos := strings.IndexByte(query, '%')
	if pos < 0 {
		return true
	}

	rs := []rune(query[pos:])
	run := make([]byte, 0, len(rs)/3)

	for i := 0; i < len(rs); i++ {
		switch c := rs[i]; {
		case c == '%':
			if i+2 >= len(rs) {
				return true
			}

			hi, lo := rs[i+1], rs[i+2]
			switch {
			case hi > 0xff:
				i++
			case lo > 0xff:
				i += 2
			default:
				run = append(run, unhex(hi)<<4|unhex(lo))
				i += 2
			}
		case c > 0xff:
			if _, err := enc.DecodeStrict(run); err != nil {
				return false
			}

			run = run[:0]
		}
	}

	_, err := enc.DecodeStrict(run)

	return err == nil
}

// unhex is lenient: characters that are not hex digits count as zero.
func unhex(c rune) byte {
	switch {
	case '0' <= c && c <= '9':
		return byte(c - '0')
	case 'a' <= c && c <= 'f':
		return byte(c - 'a' + 10)
	case 'A' <= c && c <= 'F':
		return byte(c - 'A' + 10)
	}

	return 0
}
