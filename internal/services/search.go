package services

import (
	"context"
	"fmt"

	"github.com/AnshRaj112/visitrace-backend/internal/models"
	"github.com/AnshRaj112/visitrace-backend/internal/store"
)

// DefaultPageSize is the number of rows per search page.
const DefaultPageSize = 20

// ErrInvalidSearchField is returned for fields outside models.SearchFields.
var ErrInvalidSearchField = store.ErrInvalidSearchField

// SearchQuery is one viewer search. Page is 1-based; values below 1 mean 1.
type SearchQuery struct {
	Field    models.SearchField
	Value    string
	Page     int
	Fragment bool
}

// SearchEngine runs paginated searches over stored requests and joins each
// row with the reputation of its IP.
type SearchEngine struct {
	store      store.RequestStore
	reputation ReputationLookup
	pageSize   int
}

func NewSearchEngine(st store.RequestStore, reputation ReputationLookup, pageSize int) *SearchEngine {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &SearchEngine{store: st, reputation: reputation, pageSize: pageSize}
}

// PageSize returns the fixed number of rows per page.
func (s *SearchEngine) PageSize() int {
	return s.pageSize
}

// Search returns the requested page, newest first. More is set when the page
// came back full.
func (s *SearchEngine) Search(ctx context.Context, q SearchQuery) (models.SearchResult, error) {
	if !q.Field.Valid() {
		return models.SearchResult{}, fmt.Errorf("%w: %q", ErrInvalidSearchField, q.Field)
	}
	if q.Page < 1 {
		q.Page = 1
	}

	events, err := s.store.QueryRequests(ctx, models.RequestQuery{
		Field:    q.Field,
		Value:    q.Value,
		Fragment: q.Fragment,
		Limit:    s.pageSize,
		Offset:   (q.Page - 1) * s.pageSize,
	})
	if err != nil {
		return models.SearchResult{}, err
	}

	// one lookup per distinct IP on the page
	seen := make(map[string]models.ReputationData)
	rows := make([]models.SearchRow, 0, len(events))
	for _, e := range events {
		rep, ok := seen[e.IP]
		if !ok {
			rep = s.reputation.Lookup(ctx, e.IP)
			seen[e.IP] = rep
		}
		rows = append(rows, models.SearchRow{RequestEvent: e, Reputation: rep})
	}

	return models.SearchResult{
		Rows: rows,
		More: len(events) == s.pageSize,
		Query: models.SearchEcho{
			Type:  q.Field,
			Value: q.Value,
			Page:  q.Page,
		},
	}, nil
}
