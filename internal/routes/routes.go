package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/visitrace-backend/internal/handlers"
)

// Deps carries everything the route table mounts.
type Deps struct {
	Tracking   func(http.Handler) http.Handler
	FaviconURL string

	ViewerPath       string
	ViewerMiddleware []func(http.Handler) http.Handler
	Viewer           *handlers.ViewerHandler
	Live             http.Handler
}

// SetupRoutes mounts the tracker and the viewer on r. Tracking runs first on
// every request; what it passes through reaches the routes below.
func SetupRoutes(r *chi.Mux, d Deps) {
	if d.Tracking != nil {
		r.Use(d.Tracking)
	}

	r.Get("/robots.txt", handlers.Robots)
	r.Get("/favicon.ico", handlers.Favicon(d.FaviconURL))
	r.Get("/health", handlers.Health)

	r.Route(d.ViewerPath, func(vr chi.Router) {
		for _, mw := range d.ViewerMiddleware {
			vr.Use(mw)
		}
		vr.Get("/", d.Viewer.Index)
		vr.Post("/visitor", d.Viewer.SearchVisitor)
		vr.Post("/host", d.Viewer.SearchHost)
		vr.Post("/useragent", d.Viewer.SearchUserAgent)
		vr.Post("/ip", d.Viewer.SearchIP)
		vr.Post("/ipinfo", d.Viewer.IPInfo)
		if d.Live != nil {
			vr.Method(http.MethodGet, "/live", d.Live)
		}
	})
}
