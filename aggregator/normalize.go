package aggregator

import (
	"regexp"
	"strings"
)

// Placeholder replaces volatile path segments in normalized URIs.
const Placeholder = "*"

var (
	hashToken  = regexp.MustCompile(`[0-9a-fA-F]{32}`)
	digitsRuns = regexp.MustCompile(`[0-9]{2,}`)
)

// NormalizeURI maps a request path onto a low cardinality aggregation key. Everything from
// the first ';' is dropped. The first 32 character hex token is replaced by a placeholder;
// only when there is none, every run of two or more digits is.
func NormalizeURI(uri string) string {
	if i := strings.IndexByte(uri, ';'); i >= 0 {
		uri = uri[:i]
	}

	if uri == "" || uri == "/" {
		return "/"
	}

	if loc := hashToken.FindStringIndex(uri); loc != nil {
		return uri[:loc[0]] + Placeholder + uri[loc[1]:]
	}

	return digitsRuns.ReplaceAllLiteralString(uri, Placeholder)
}
