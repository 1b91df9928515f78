// Package normalize turns the many ways a relay address gets written into one
// canonical form, so the same relay is never connected to twice.
package normalize

import (
	"net/url"
	"strings"
)

// URL normalizes the url and replaces http://, https:// schemes by
// ws://, wss://. Addresses without a scheme are assumed to be wss.
func URL(u string) string {
	if u == "" {
		return ""
	}
	u = strings.TrimSpace(u)
	u = strings.ToLower(u)
	if !(strings.HasPrefix(u, "http://") ||
		strings.HasPrefix(u, "https://") ||
		strings.HasPrefix(u, "ws://") ||
		strings.HasPrefix(u, "wss://")) {
		u = "wss://" + u
	}
	var e error
	var p *url.URL
	if p, e = url.Parse(u); e != nil {
		return ""
	}
	switch p.Scheme {
	case "https":
		p.Scheme = "wss"
	case "http":
		p.Scheme = "ws"
	}
	p.Path = strings.TrimRight(p.Path, "/")
	return p.String()
}

// URLs normalizes a list of relay addresses, dropping empty and unparseable
// ones and duplicates while keeping the order of first appearance.
func URLs(us []string) (out []string) {
	seen := make(map[string]struct{}, len(us))
	for _, u := range us {
		n := URL(u)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return
}
