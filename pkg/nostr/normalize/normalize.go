// Package normalize massages strings into the canonical forms the protocol
// expects.
package normalize

import (
	"net/url"
	"strings"
)

// URL normalizes a relay url, replacing http:// and https:// schemes with
// ws:// and wss:// and assuming wss when no scheme is given.
func URL(u string) string {
	if u == "" {
		return ""
	}
	u = strings.ToLower(strings.TrimSpace(u))
	if !(strings.HasPrefix(u, "http://") ||
		strings.HasPrefix(u, "https://") ||
		strings.HasPrefix(u, "ws://") ||
		strings.HasPrefix(u, "wss://")) {
		u = "wss://" + u
	}
	p, err := url.Parse(u)
	if err != nil {
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

// Reason ensures a message carries one of the machine readable prefixes of
// OK and CLOSED messages, prepending the given one when none is present.
func Reason(msg, prefix string) string {
	if msg == "" {
		return prefix
	}
	for _, known := range []string{
		"duplicate", "pow", "blocked", "rate-limited", "invalid", "error",
	} {
		if strings.HasPrefix(msg, known+":") {
			return msg
		}
	}
	return prefix + ": " + msg
}
