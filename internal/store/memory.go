package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/visitrace-backend/internal/models"
)

// MemoryStore keeps everything in process memory. It is safe for concurrent
// use and intended for development and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	requests   []models.RequestEvent
	reputation []models.ReputationEntry
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) InsertRequest(ctx context.Context, event *models.RequestEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, *event)
	return nil
}

func (m *MemoryStore) QueryRequests(ctx context.Context, q models.RequestQuery) ([]models.RequestEvent, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	m.mu.RLock()
	var matched []models.RequestEvent
	for i := range m.requests {
		v := fieldValue(&m.requests[i], q.Field)
		if (q.Fragment && strings.Contains(v, q.Value)) || (!q.Fragment && v == q.Value) {
			matched = append(matched, m.requests[i])
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if q.Offset >= len(matched) {
		return []models.RequestEvent{}, nil
	}
	end := q.Offset + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[q.Offset:end], nil
}

func (m *MemoryStore) InsertReputation(ctx context.Context, entry *models.ReputationEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reputation = append(m.reputation, *entry)
	return nil
}

func (m *MemoryStore) FindFreshReputation(ctx context.Context, ip string, cutoff time.Time) (*models.ReputationEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.reputation {
		e := m.reputation[i]
		if e.IP == ip && e.Timestamp.After(cutoff) {
			return &e, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) DeleteStaleReputation(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.reputation[:0]
	var removed int64
	for _, e := range m.reputation {
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
			continue
		}
		removed++
	}
	m.reputation = kept
	return removed, nil
}

// ReputationCount reports how many entries are physically stored.
func (m *MemoryStore) ReputationCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reputation)
}

// RequestCount reports how many events are stored.
func (m *MemoryStore) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

func (m *MemoryStore) Close(ctx context.Context) error {
	return nil
}
