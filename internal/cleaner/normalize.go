package cleaner

import (
	"regexp"
	"strings"

	"github.com/purelink/purelink/internal/rules"
)

var ampRun = regexp.MustCompile(`&{2,}`)

// Normalize removes every parameter matched by p from the query of rawURL.
// The query runs from the first '?' to the first '#'; the fragment is kept
// as is. When nothing matches the input is returned unchanged.
func Normalize(rawURL string, p *rules.Pattern) string {
	q := strings.IndexByte(rawURL, '?')
	if q < 0 {
		return rawURL
	}
	end := len(rawURL)
	if h := strings.IndexByte(rawURL, '#'); h >= 0 {
		if h < q {
			return rawURL
		}
		end = h
	}

	query := rawURL[q:end]
	stripped := p.Strip(query)
	if stripped == query {
		return rawURL
	}

	return rawURL[:q] + repairQuery(stripped) + rawURL[end:]
}

// repairQuery fixes the delimiters left behind by removed parameters.
func repairQuery(s string) string {
	// The leading parameter took the '?' with it.
	if strings.HasPrefix(s, "&") {
		s = "?" + s[1:]
	}
	s = strings.ReplaceAll(s, "?&", "?")
	s = ampRun.ReplaceAllLiteralString(s, "&")
	if strings.HasSuffix(s, "?") || strings.HasSuffix(s, "&") {
		s = s[:len(s)-1]
	}
	return strings.TrimSuffix(s, "?")
}
