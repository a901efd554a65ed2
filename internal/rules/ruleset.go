// Package rules owns the tracking-parameter blocklist: the ordered RuleSet,
// the pattern compiled from it, and the atomically swapped pair that every
// normalization reads.
package rules

import (
	"strings"
)

// defaultNames is the built-in blocklist used until a remote list is loaded.
var defaultNames = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"fbclid", "si", "ref", "gclid", "gclsrc", "dclid", "msclkid",
	"mc_eid", "_ga", "yclid", "vero_conv", "vero_id", "wickedid",
	"share_id", "igshid",
}

// RuleSet is an ordered, case-insensitively unique list of parameter names.
// The zero value behaves like Default().
type RuleSet struct {
	names []string
}

// New builds a RuleSet from raw names. Whitespace is trimmed, blank entries
// are dropped and later case-insensitive duplicates collapse into the first.
func New(names []string) RuleSet {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return RuleSet{names: out}
}

// Default returns the built-in RuleSet.
func Default() RuleSet {
	return New(defaultNames)
}

// Names returns a copy of the rule names in order.
func (rs RuleSet) Names() []string {
	if rs.names == nil {
		return Default().Names()
	}
	out := make([]string, len(rs.names))
	copy(out, rs.names)
	return out
}

// Len returns the number of rules.
func (rs RuleSet) Len() int {
	if rs.names == nil {
		return len(defaultNames)
	}
	return len(rs.names)
}

// IsZero reports whether rs is the unset zero value.
func (rs RuleSet) IsZero() bool {
	return rs.names == nil
}

// Contains reports whether name is a rule, ignoring case.
func (rs RuleSet) Contains(name string) bool {
	for _, n := range rs.Names() {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}
