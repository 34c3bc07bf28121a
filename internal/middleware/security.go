package middleware

import (
	"net/http"
	"strings"

	"github.com/AnshRaj112/visitrace-backend/pkg/clientip"
)

const (
	headerXContentTypeOptions     = "X-Content-Type-Options"
	headerXFrameOptions           = "X-Frame-Options"
	headerReferrerPolicy          = "Referrer-Policy"
	headerContentSecurityPolicy   = "Content-Security-Policy"
	headerStrictTransportSecurity = "Strict-Transport-Security"
)

// SecurityHeaders sets security-related response headers on viewer responses.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerXContentTypeOptions, "nosniff")
		w.Header().Set(headerXFrameOptions, "DENY")
		w.Header().Set(headerReferrerPolicy, "no-referrer")
		w.Header().Set(headerContentSecurityPolicy, "default-src 'self'")
		w.Header().Set(headerStrictTransportSecurity, "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// IPAllowlist returns 403 for clients whose IP is not listed. An empty list
// lets everyone through.
func IPAllowlist(allowed []string, trustedHeader string) func(http.Handler) http.Handler {
	set := make(map[string]bool, len(allowed))
	for _, ip := range allowed {
		if ip = strings.TrimSpace(ip); ip != "" {
			set[ip] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(set) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			ip := clientip.FromRequest(r, trustedHeader)
			if !set[ip] {
				log.Noticef("viewer access denied for %s", ip)
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte("Forbidden"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ViewerSecurity returns the viewer middleware chain:
// SecurityHeaders → IPAllowlist → limiter.
func ViewerSecurity(allowed []string, trustedHeader string, limiter *IPRateLimiter) []func(http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		SecurityHeaders,
		IPAllowlist(allowed, trustedHeader),
	}
	if limiter != nil {
		chain = append(chain, limiter.Middleware)
	}
	return chain
}
