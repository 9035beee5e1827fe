// Package hostblock matches hostnames against exact and wildcard patterns.
package hostblock

import (
	"net/url"
	"slices"
	"strings"
)

// List holds exact hosts and suffix wildcards. A nil List blocks nothing.
type List struct {
	exact    map[string]struct{}
	suffixes []string
}

// New parses patterns. "example.org" matches only that host; "*.example.org"
// and ".example.org" match it and every subdomain. It returns nil when no
// usable pattern is given.
func New(patterns []string) *List {
	l := &List{exact: make(map[string]struct{})}
	for _, raw := range patterns {
		value := strings.TrimSpace(strings.ToLower(raw))
		switch {
		case value == "":
		case strings.HasPrefix(value, "*."):
			l.addSuffix(strings.TrimPrefix(value, "*."))
		case strings.HasPrefix(value, "."):
			l.addSuffix(strings.TrimPrefix(value, "."))
		default:
			l.exact[value] = struct{}{}
		}
	}
	if len(l.exact) == 0 && len(l.suffixes) == 0 {
		return nil
	}
	return l
}

func (l *List) addSuffix(suffix string) {
	if suffix == "" || slices.Contains(l.suffixes, suffix) {
		return
	}
	l.suffixes = append(l.suffixes, suffix)
}

// IsBlocked reports whether host matches any pattern. A leading "www." is
// ignored so "facebook.com" also covers "www.facebook.com".
func (l *List) IsBlocked(host string) bool {
	if l == nil {
		return false
	}
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" {
		return false
	}
	for _, h := range []string{host, strings.TrimPrefix(host, "www.")} {
		if _, ok := l.exact[h]; ok {
			return true
		}
	}
	for _, suffix := range l.suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

// BlocksURL reports whether rawURL's host is blocked. Unparseable URLs are
// not blocked.
func (l *List) BlocksURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return l.IsBlocked(u.Hostname())
}
