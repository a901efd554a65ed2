// Package cleaner finds URLs in free-form text and strips their tracking
// parameters, optionally unshortening them first.
package cleaner

import (
	"regexp"
	"strings"
)

// urlPattern is permissive on purpose: a scheme followed by the longest run
// of non-space characters. Unicode separators count as space.
var urlPattern = regexp.MustCompile(`(?i)https?://[^\s\p{Z}]+`)

// Match is one URL occurrence. Start and End are byte offsets into the
// scanned text.
type Match struct {
	URL   string
	Start int
	End   int
}

// HasScheme reports whether text could contain a URL at all.
func HasScheme(text string) bool {
	if !strings.Contains(text, "://") {
		return false
	}
	lower := strings.ToLower(text)
	return strings.Contains(lower, "http://") || strings.Contains(lower, "https://")
}

// Extract returns every URL in text in order of appearance.
func Extract(text string) []Match {
	if !HasScheme(text) {
		return nil
	}
	locs := urlPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		matches = append(matches, Match{URL: text[loc[0]:loc[1]], Start: loc[0], End: loc[1]})
	}
	return matches
}
