package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/op/go-logging"

	"github.com/AnshRaj112/visitrace-backend/internal/services"
	"github.com/AnshRaj112/visitrace-backend/pkg/clientip"
	"github.com/AnshRaj112/visitrace-backend/pkg/visitorid"
)

var log = logging.MustGetLogger("TRACK")

// Recorder stores one tracked request. Implementations must not fail the
// request; *services.RequestLogger swallows its own errors.
type Recorder interface {
	Record(ctx context.Context, in services.RequestInput)
}

// TrackingOptions configures Tracking.
type TrackingOptions struct {
	Codec      *visitorid.Codec
	Recorder   Recorder
	CookieName string
	// CookieDomain is the parent-domain scope, e.g. ".example.com".
	CookieDomain string
	MaxAge       time.Duration
	RedirectURL  string

	// ViewerHost requests pass through untouched.
	ViewerHost string
	// SkipPaths pass through untouched on every host.
	SkipPaths       []string
	TrustedIPHeader string

	// Prefetch, when set, warms the reputation of the visitor IP in the
	// background.
	Prefetch services.ReputationLookup
}

// Tracking identifies the visitor, records the request and redirects it.
// Requests it does not track are handed to next.
func Tracking(opts TrackingOptions) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(opts.SkipPaths))
	for _, p := range opts.SkipPaths {
		skip[p] = true
	}
	viewerHost := strings.TrimSpace(opts.ViewerHost)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isViewerHost(r.Host, viewerHost) || skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			token := ""
			if c, err := r.Cookie(opts.CookieName); err == nil {
				if t, ok := opts.Codec.Verify(c.Value); ok {
					token = t
				}
			}
			if token == "" {
				token = opts.Codec.Issue()
			}

			ip := clientip.FromRequest(r, opts.TrustedIPHeader)
			opts.Recorder.Record(r.Context(), services.RequestInput{
				IP:           ip,
				URL:          r.URL.RequestURI(),
				Method:       r.Method,
				UserAgent:    r.UserAgent(),
				VisitorToken: token,
				Host:         r.Host,
			})

			if opts.Prefetch != nil {
				go opts.Prefetch.Lookup(context.WithoutCancel(r.Context()), ip)
			}

			http.SetCookie(w, &http.Cookie{
				Name:     opts.CookieName,
				Value:    opts.Codec.Sign(token),
				Path:     "/",
				Domain:   opts.CookieDomain,
				MaxAge:   int(opts.MaxAge / time.Second),
				HttpOnly: true,
			})
			http.Redirect(w, r, opts.RedirectURL, http.StatusFound)
		})
	}
}

// isViewerHost reports whether host (optionally with a port) names the viewer.
// An empty viewer host matches nothing.
func isViewerHost(host, viewerHost string) bool {
	if viewerHost == "" {
		return false
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.EqualFold(strings.TrimSpace(host), viewerHost)
}
