package cache

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMinLength is the shortest description accepted by DefaultPolicy.
const DefaultMinLength = 50

// Policy configures caching behavior.
type Policy struct {
	// Enabled turns caption caching on. When false, every lookup misses and
	// nothing is stored.
	Enabled bool

	// MinLength is the minimum description length in runes, after trimming.
	MinLength int
}

// DefaultPolicy returns the default caching policy.
func DefaultPolicy() Policy {
	return Policy{Enabled: true, MinLength: DefaultMinLength}
}

// Accept reports whether desc is good enough to be cached: non-empty and
// at least MinLength runes long once surrounding space is trimmed.
func (p Policy) Accept(desc string) bool {
	trimmed := strings.TrimSpace(desc)
	if trimmed == "" {
		return false
	}
	return utf8.RuneCountInString(trimmed) >= p.MinLength
}

// StripControl removes control characters from s, keeping newlines and tabs.
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
