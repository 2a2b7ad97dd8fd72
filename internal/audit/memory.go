package audit

import (
	"context"
	"sync"
	"time"

	"idproof/pkg/domain"
	"idproof/pkg/platform/sentinel"
)

// InMemoryStore keeps records in process memory. Used in tests and when no
// Postgres URL is configured.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []Record
	bySess  map[domain.SessionID]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{bySess: make(map[domain.SessionID]int)}
}

func (s *InMemoryStore) Append(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bySess[record.SessionID]; exists {
		return sentinel.ErrConflict
	}
	s.bySess[record.SessionID] = len(s.records)
	s.records = append(s.records, record)
	return nil
}

func (s *InMemoryStore) FindBySession(_ context.Context, sessionID domain.SessionID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.bySess[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	record := s.records[idx]
	return &record, nil
}

func (s *InMemoryStore) ListByTimeRange(_ context.Context, from, to time.Time) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.records {
		if r.Timestamp.Before(from) || r.Timestamp.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
