package session

import (
	"context"
	"sync"

	"idproof/pkg/domain"
	"idproof/pkg/platform/sentinel"
)

// Store persists sessions. Update performs an optimistic version check: the
// stored version must match the version the caller read, and the committed
// session carries the incremented version. A mismatch reports
// sentinel.ErrConflict.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id domain.SessionID) (*Session, error)
	Update(ctx context.Context, s *Session) error
}

// InMemoryStore keeps sessions in process memory. Used in tests and when no
// Redis URL is configured.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[domain.SessionID]Session)}
}

func (st *InMemoryStore) Create(_ context.Context, s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, exists := st.sessions[s.ID]; exists {
		return sentinel.ErrConflict
	}
	st.sessions[s.ID] = *s
	return nil
}

func (st *InMemoryStore) Get(_ context.Context, id domain.SessionID) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &s, nil
}

func (st *InMemoryStore) Update(_ context.Context, s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	current, ok := st.sessions[s.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != s.Version {
		return sentinel.ErrConflict
	}
	s.Version++
	st.sessions[s.ID] = *s
	return nil
}
