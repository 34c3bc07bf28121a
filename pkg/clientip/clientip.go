package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the client IP from the transport address only.
// Use when traffic reaches the app directly without a proxy in front.
func RealClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.TrimSpace(host)
}

// FromRequest prefers the value of trustedHeader (e.g. CF-Connecting-IP set by
// the CDN in front of the tracker) and falls back to RealClientIP.
// Comma-separated header values yield their first entry.
func FromRequest(r *http.Request, trustedHeader string) string {
	if trustedHeader != "" {
		if v := strings.TrimSpace(r.Header.Get(trustedHeader)); v != "" {
			if idx := strings.Index(v, ","); idx != -1 {
				v = strings.TrimSpace(v[:idx])
			}
			if v != "" {
				return v
			}
		}
	}
	return RealClientIP(r)
}
