package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/op/go-logging"

	"github.com/AnshRaj112/visitrace-backend/internal/models"
	"github.com/AnshRaj112/visitrace-backend/internal/services"
)

var log = logging.MustGetLogger("VIEW")

// Searcher runs one paginated viewer search.
type Searcher interface {
	Search(ctx context.Context, q services.SearchQuery) (models.SearchResult, error)
}

// ViewerHandler serves the viewer's search API.
type ViewerHandler struct {
	search     Searcher
	reputation services.ReputationLookup
	basePath   string
}

func NewViewerHandler(search Searcher, reputation services.ReputationLookup, basePath string) *ViewerHandler {
	return &ViewerHandler{search: search, reputation: reputation, basePath: basePath}
}

type searchRoute struct {
	Path     string             `json:"path"`
	Param    string             `json:"param"`
	Field    models.SearchField `json:"field"`
	Fragment bool               `json:"fragment"`
}

// searchRoutes is the fixed list of search endpoints under the viewer path.
var searchRoutes = []searchRoute{
	{Path: "/visitor", Param: "visitor", Field: models.FieldVisitorToken},
	{Path: "/host", Param: "host", Field: models.FieldHost},
	{Path: "/useragent", Param: "useragent", Field: models.FieldUserAgent, Fragment: true},
	{Path: "/ip", Param: "ip", Field: models.FieldIP},
}

// Index describes the available searches.
func (h *ViewerHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"base_route": h.basePath,
		"searches":   searchRoutes,
	})
}

func (h *ViewerHandler) SearchVisitor(w http.ResponseWriter, r *http.Request) {
	h.handleSearch(w, r, searchRoutes[0])
}

func (h *ViewerHandler) SearchHost(w http.ResponseWriter, r *http.Request) {
	h.handleSearch(w, r, searchRoutes[1])
}

func (h *ViewerHandler) SearchUserAgent(w http.ResponseWriter, r *http.Request) {
	h.handleSearch(w, r, searchRoutes[2])
}

func (h *ViewerHandler) SearchIP(w http.ResponseWriter, r *http.Request) {
	h.handleSearch(w, r, searchRoutes[3])
}

func (h *ViewerHandler) handleSearch(w http.ResponseWriter, r *http.Request, route searchRoute) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form body")
		return
	}

	result, err := h.search.Search(r.Context(), services.SearchQuery{
		Field:    route.Field,
		Value:    r.PostForm.Get(route.Param),
		Page:     parsePage(r.PostForm.Get("page")),
		Fragment: route.Fragment,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidSearchField) {
			writeError(w, http.StatusBadRequest, "Invalid search field")
			return
		}
		log.Errorf("search %s failed: %v", route.Field, err)
		writeError(w, http.StatusInternalServerError, "Search failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type ipInfoRequest struct {
	IP string `json:"ip"`
}

// IPInfo returns the reputation of a single IP.
func (h *ViewerHandler) IPInfo(w http.ResponseWriter, r *http.Request) {
	var req ipInfoRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	ip := strings.TrimSpace(req.IP)
	if net.ParseIP(ip) == nil {
		writeError(w, http.StatusBadRequest, "Invalid IP address")
		return
	}
	writeJSON(w, http.StatusOK, h.reputation.Lookup(r.Context(), ip))
}

// parsePage turns the page form value into a 1-based page number.
func parsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warningf("writing response failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
