package envelopes

import (
	"strings"
)

// Machine readable prefixes of OK and CLOSED reasons.
const (
	PoW          = "pow"
	Duplicate    = "duplicate"
	Blocked      = "blocked"
	RateLimited  = "rate-limited"
	Invalid      = "invalid"
	Error        = "error"
	AuthRequired = "auth-required"
	Restricted   = "restricted"
)

var knownPrefixes = []string{PoW, Duplicate, Blocked, RateLimited, Invalid,
	Error, AuthRequired, Restricted}

// SplitReason separates a "prefix: message" reason into its parts. A reason
// without a known prefix is returned whole as the message.
func SplitReason(reason string) (prefix, message string) {
	if i := strings.Index(reason, ":"); i > 0 {
		p := reason[:i]
		for _, k := range knownPrefixes {
			if p == k {
				return p, strings.TrimSpace(reason[i+1:])
			}
		}
	}
	return "", reason
}

// Prefix returns the machine readable part of the reason, or "".
func (env *OK) Prefix() string {
	p, _ := SplitReason(env.Reason)
	return p
}

// Prefix returns the machine readable part of the reason, or "".
func (env *Closed) Prefix() string {
	p, _ := SplitReason(env.Reason)
	return p
}
