// Package domain decides whether a target hostname may be relayed to.
package domain

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

const wildcardPrefix = "*."

type pattern struct {
	host     string // exact host, or the suffix for wildcards (without "*.")
	wildcard bool
}

// Matcher evaluates hostnames against an allow-list of exact and "*.suffix"
// patterns. It is immutable once built and safe for concurrent use.
type Matcher struct {
	patterns []pattern
}

// NewMatcher builds a Matcher. An empty list allows every host.
func NewMatcher(patterns []string) *Matcher {
	m := &Matcher{patterns: make([]pattern, 0, len(patterns))}
	for _, p := range patterns {
		p = normalize(p)
		if strings.HasPrefix(p, wildcardPrefix) {
			m.patterns = append(m.patterns, pattern{host: p[len(wildcardPrefix):], wildcard: true})
			continue
		}
		m.patterns = append(m.patterns, pattern{host: p})
	}
	return m
}

// Unrestricted reports whether the allow-list is empty.
func (m *Matcher) Unrestricted() bool {
	return len(m.patterns) == 0
}

// Len returns the number of configured patterns.
func (m *Matcher) Len() int {
	return len(m.patterns)
}

// IsAllowed reports whether hostname matches any pattern.
// "*.example.com" matches "example.com" and "api.example.com" but not
// "notexample.com".
func (m *Matcher) IsAllowed(hostname string) bool {
	if m.Unrestricted() {
		return true
	}

	host := normalize(hostname)
	for _, p := range m.patterns {
		if p.wildcard {
			if host == p.host || strings.HasSuffix(host, "."+p.host) {
				return true
			}
		} else if host == p.host {
			return true
		}
	}
	return false
}

// normalize lowercases s and converts it to its ASCII (punycode) form when
// possible, so unicode and punycode spellings of a host compare equal.
func normalize(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(lower, wildcardPrefix) {
		return wildcardPrefix + toASCII(lower[len(wildcardPrefix):])
	}
	return toASCII(lower)
}

func toASCII(s string) string {
	ascii, err := idna.ToASCII(s)
	if err != nil {
		return s
	}
	return strings.ToLower(ascii)
}

// ExtractHostname returns the hostname of rawURL, retrying with an "http://"
// prefix when rawURL has no scheme. It returns "" when neither form parses.
func ExtractHostname(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Hostname()
	}
	if u, err := url.Parse("http://" + rawURL); err == nil {
		return u.Hostname()
	}
	return ""
}

// ValidatePattern reports whether p is a usable allow-list entry.
func ValidatePattern(p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("empty domain pattern")
	}
	if strings.ContainsAny(p, "/: \t") {
		return fmt.Errorf("domain pattern %q must be a bare hostname", p)
	}
	rest := strings.TrimPrefix(p, wildcardPrefix)
	if strings.Contains(rest, "*") {
		return fmt.Errorf("domain pattern %q: wildcard is only allowed as a leading \"*.\"", p)
	}
	if rest == "" {
		return fmt.Errorf("domain pattern %q has an empty suffix", p)
	}
	return nil
}
