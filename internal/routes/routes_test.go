package routes

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/visitrace-backend/internal/handlers"
	"github.com/AnshRaj112/visitrace-backend/internal/middleware"
	"github.com/AnshRaj112/visitrace-backend/internal/services"
	"github.com/AnshRaj112/visitrace-backend/internal/store"
	"github.com/AnshRaj112/visitrace-backend/pkg/visitorid"
)

func newTestRouter(allowed []string) (*chi.Mux, *store.MemoryStore, *services.RequestLogger) {
	st := store.NewMemoryStore()
	logger := services.NewRequestLogger(st, nil, time.Second)
	cache := services.NewReputationCache(st, nil, services.ReputationOptions{})
	engine := services.NewSearchEngine(st, cache, 20)

	r := chi.NewRouter()
	SetupRoutes(r, Deps{
		Tracking: middleware.Tracking(middleware.TrackingOptions{
			Codec:        visitorid.New([]byte("k")),
			Recorder:     logger,
			CookieName:   "visitor_id",
			CookieDomain: ".example.com",
			MaxAge:       time.Hour,
			RedirectURL:  "https://landing.example.org/",
			ViewerHost:   "viewer.example.com",
			SkipPaths:    []string{"/robots.txt", "/favicon.ico"},
		}),
		FaviconURL:       "https://cdn.example.com/icon.png",
		ViewerPath:       "/viewer",
		ViewerMiddleware: middleware.ViewerSecurity(allowed, "", nil),
		Viewer:           handlers.NewViewerHandler(engine, cache, "/viewer"),
		Live:             handlers.NewLiveHandler(nil),
	})
	return r, st, logger
}

func TestRouter_TrackThenSearchFromViewer(t *testing.T) {
	r, st, logger := newTestRouter(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://shop.example.com/viewer/", nil))
	if w.Code != http.StatusFound {
		t.Fatalf("tracked host status = %d, want 302", w.Code)
	}
	logger.Wait()
	if st.RequestCount() != 1 {
		t.Fatalf("RequestCount() = %d", st.RequestCount())
	}

	form := url.Values{"host": {"shop.example.com"}}
	req := httptest.NewRequest(http.MethodPost, "http://viewer.example.com/viewer/host", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("viewer search status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"host":"shop.example.com"`) || !strings.Contains(w.Body.String(), `"country":"N/A"`) {
		t.Fatalf("body = %s", w.Body.String())
	}
	if st.RequestCount() != 1 {
		t.Fatal("viewer request was tracked")
	}
}

func TestRouter_RootRoutes(t *testing.T) {
	r, st, logger := newTestRouter(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://shop.example.com/robots.txt", nil))
	if w.Code != http.StatusOK || w.Body.String() != "User-agent: *\nDisallow: /" {
		t.Fatalf("robots: %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://shop.example.com/favicon.ico", nil))
	if w.Header().Get("Location") != "https://cdn.example.com/icon.png" {
		t.Fatalf("favicon Location = %q", w.Header().Get("Location"))
	}

	logger.Wait()
	if st.RequestCount() != 0 {
		t.Fatal("root routes were tracked")
	}
}

func TestRouter_ViewerAllowlist(t *testing.T) {
	r, _, _ := newTestRouter([]string{"203.0.113.1"})

	req := httptest.NewRequest(http.MethodGet, "http://viewer.example.com/viewer/", nil)
	req.RemoteAddr = "198.51.100.9:4000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "http://viewer.example.com/viewer/", nil)
	req.RemoteAddr = "203.0.113.1:4000"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"base_route":"/viewer"`) {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestRouter_LiveWithoutRedis(t *testing.T) {
	r, _, _ := newTestRouter(nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://viewer.example.com/viewer/live", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}
