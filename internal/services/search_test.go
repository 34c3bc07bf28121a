package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/visitrace-backend/internal/models"
	"github.com/AnshRaj112/visitrace-backend/internal/store"
)

type countingLookup struct {
	calls map[string]int
	data  models.ReputationData
}

func (c *countingLookup) Lookup(ctx context.Context, ip string) models.ReputationData {
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[ip]++
	return c.data
}

func seedRequests(t *testing.T, st *store.MemoryStore, n int, mutate func(i int, e *models.RequestEvent)) {
	t.Helper()
	for i := 0; i < n; i++ {
		e := models.RequestEvent{
			ID:           uuid.New(),
			IP:           "198.51.100.1",
			URL:          fmt.Sprintf("/r/%d", i),
			Method:       "GET",
			UserAgent:    "curl/8.0",
			VisitorToken: "tok",
			Host:         "a.example.com",
			Timestamp:    testNow.Add(time.Duration(i) * time.Second),
		}
		if mutate != nil {
			mutate(i, &e)
		}
		if err := st.InsertRequest(context.Background(), &e); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSearchEngine_Pagination(t *testing.T) {
	st := store.NewMemoryStore()
	seedRequests(t, st, 45, nil)
	engine := NewSearchEngine(st, &countingLookup{data: models.UnknownReputation}, 0)

	tests := []struct {
		page      int
		wantRows  int
		wantFirst string
		wantMore  bool
	}{
		{page: 1, wantRows: 20, wantFirst: "/r/44", wantMore: true},
		{page: 2, wantRows: 20, wantFirst: "/r/24", wantMore: true},
		{page: 3, wantRows: 5, wantFirst: "/r/4", wantMore: false},
		{page: 4, wantRows: 0, wantMore: false},
		{page: 0, wantRows: 20, wantFirst: "/r/44", wantMore: true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			res, err := engine.Search(context.Background(), SearchQuery{
				Field: models.FieldVisitorToken, Value: "tok", Page: tt.page,
			})
			if err != nil {
				t.Fatal(err)
			}
			if len(res.Rows) != tt.wantRows {
				t.Fatalf("got %d rows, want %d", len(res.Rows), tt.wantRows)
			}
			if res.More != tt.wantMore {
				t.Fatalf("More = %v, want %v", res.More, tt.wantMore)
			}
			if tt.wantRows > 0 && res.Rows[0].URL != tt.wantFirst {
				t.Fatalf("first row %s, want %s", res.Rows[0].URL, tt.wantFirst)
			}
			for i := 1; i < len(res.Rows); i++ {
				if res.Rows[i].Timestamp.After(res.Rows[i-1].Timestamp) {
					t.Fatalf("rows not newest first at %d", i)
				}
			}
		})
	}
}

func TestSearchEngine_ExactPageIsFollowedByEmptyPage(t *testing.T) {
	st := store.NewMemoryStore()
	seedRequests(t, st, 20, nil)
	engine := NewSearchEngine(st, &countingLookup{}, 20)

	first, _ := engine.Search(context.Background(), SearchQuery{Field: models.FieldHost, Value: "a.example.com", Page: 1})
	second, _ := engine.Search(context.Background(), SearchQuery{Field: models.FieldHost, Value: "a.example.com", Page: 2})

	if !first.More || len(second.Rows) != 0 || second.More {
		t.Fatalf("first.More=%v second rows=%d second.More=%v", first.More, len(second.Rows), second.More)
	}
}

func TestSearchEngine_UserAgentFragment(t *testing.T) {
	st := store.NewMemoryStore()
	seedRequests(t, st, 6, func(i int, e *models.RequestEvent) {
		if i%2 == 0 {
			e.UserAgent = "Mozilla/5.0 (X11; Linux x86_64)"
		}
	})
	engine := NewSearchEngine(st, &countingLookup{}, 20)

	res, err := engine.Search(context.Background(), SearchQuery{
		Field: models.FieldUserAgent, Value: "Mozilla", Fragment: true, Page: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(res.Rows))
	}
	if res.Query.Type != models.FieldUserAgent || res.Query.Value != "Mozilla" || res.Query.Page != 1 {
		t.Fatalf("query echo %+v", res.Query)
	}
}

func TestSearchEngine_InvalidField(t *testing.T) {
	engine := NewSearchEngine(store.NewMemoryStore(), &countingLookup{}, 20)

	_, err := engine.Search(context.Background(), SearchQuery{Field: "timestamp; DROP TABLE requests", Value: "x"})
	if !errors.Is(err, ErrInvalidSearchField) {
		t.Fatalf("err = %v, want ErrInvalidSearchField", err)
	}
}

func TestSearchEngine_OneLookupPerDistinctIP(t *testing.T) {
	st := store.NewMemoryStore()
	seedRequests(t, st, 10, func(i int, e *models.RequestEvent) {
		e.IP = fmt.Sprintf("198.51.100.%d", i%3)
	})
	lookup := &countingLookup{data: nlData}
	engine := NewSearchEngine(st, lookup, 20)

	res, err := engine.Search(context.Background(), SearchQuery{Field: models.FieldVisitorToken, Value: "tok", Page: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(lookup.calls) != 3 {
		t.Fatalf("looked up %d distinct IPs, want 3", len(lookup.calls))
	}
	for ip, n := range lookup.calls {
		if n != 1 {
			t.Fatalf("%s looked up %d times", ip, n)
		}
	}
	for _, row := range res.Rows {
		if row.Reputation != nlData {
			t.Fatalf("row %s has reputation %+v", row.URL, row.Reputation)
		}
	}
}

func TestSearchEngine_UnknownEnrichmentWithoutCredential(t *testing.T) {
	st := store.NewMemoryStore()
	seedRequests(t, st, 2, nil)
	cache := NewReputationCache(st, nil, ReputationOptions{})
	engine := NewSearchEngine(st, cache, 20)

	res, err := engine.Search(context.Background(), SearchQuery{Field: models.FieldIP, Value: "198.51.100.1", Page: 1})
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range res.Rows {
		if row.Reputation != models.UnknownReputation {
			t.Fatalf("row reputation %+v, want unknown", row.Reputation)
		}
	}
}
