package rules

import (
	"regexp"
	"strings"
)

// Pattern is the compiled matcher for one RuleSet. It is immutable.
type Pattern struct {
	re *regexp.Regexp
}

// Compile builds the pattern for rs. A match is a `?` or `&` delimiter, a
// rule name (case-insensitive, taken literally), `=`, and the value up to
// the next `&`, `#` or end of input.
func Compile(rs RuleSet) *Pattern {
	names := rs.Names()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp.QuoteMeta(n)
	}
	expr := `(?i)[?&](?:` + strings.Join(quoted, "|") + `)=[^&#]*`
	return &Pattern{re: regexp.MustCompile(expr)}
}

// MatchString reports whether s contains a tracking parameter.
func (p *Pattern) MatchString(s string) bool {
	return p.re.MatchString(s)
}

// Strip removes every tracking parameter span from s.
func (p *Pattern) Strip(s string) string {
	return p.re.ReplaceAllLiteralString(s, "")
}

func (p *Pattern) String() string {
	return p.re.String()
}
