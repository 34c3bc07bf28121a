package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AnshRaj112/visitrace-backend/internal/models"
)

// ErrInvalidSearchField is returned for a query whose field is not one of
// models.SearchFields. It is checked before any storage round trip.
var ErrInvalidSearchField = errors.New("invalid search field")

// RequestStore persists tracked requests. Writes are append-only.
type RequestStore interface {
	InsertRequest(ctx context.Context, event *models.RequestEvent) error
	// QueryRequests returns at most q.Limit events matching q, newest first.
	QueryRequests(ctx context.Context, q models.RequestQuery) ([]models.RequestEvent, error)
}

// ReputationStore persists cached reputation entries.
type ReputationStore interface {
	InsertReputation(ctx context.Context, entry *models.ReputationEntry) error
	// FindFreshReputation returns the first entry for ip stamped after cutoff,
	// or nil, nil when there is none.
	FindFreshReputation(ctx context.Context, ip string, cutoff time.Time) (*models.ReputationEntry, error)
	// DeleteStaleReputation removes every entry, for any ip, stamped at or
	// before cutoff and returns how many were removed.
	DeleteStaleReputation(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store is the full persistence surface of the tracker.
type Store interface {
	RequestStore
	ReputationStore
	Close(ctx context.Context) error
}

func validateQuery(q models.RequestQuery) error {
	if !q.Field.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSearchField, q.Field)
	}
	if q.Limit <= 0 {
		return fmt.Errorf("query limit must be positive, got %d", q.Limit)
	}
	if q.Offset < 0 {
		return fmt.Errorf("query offset must not be negative, got %d", q.Offset)
	}
	return nil
}

// fieldValue reads the attribute named by f from an event.
func fieldValue(e *models.RequestEvent, f models.SearchField) string {
	switch f {
	case models.FieldVisitorToken:
		return e.VisitorToken
	case models.FieldHost:
		return e.Host
	case models.FieldUserAgent:
		return e.UserAgent
	case models.FieldIP:
		return e.IP
	}
	return ""
}
