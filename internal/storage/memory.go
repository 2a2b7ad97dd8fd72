package storage

import (
	"context"
	"sync"
)

type object struct {
	data      []byte
	mediaType string
}

// InMemory is the default backend for development and tests.
type InMemory struct {
	mu      sync.RWMutex
	objects map[Ref]object
}

func NewInMemory() *InMemory {
	return &InMemory{objects: make(map[Ref]object)}
}

func (s *InMemory) Put(_ context.Context, data []byte, mediaType string) (Ref, error) {
	ref := ComputeRef(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[ref] = object{data: append([]byte(nil), data...), mediaType: mediaType}
	return ref, nil
}

func (s *InMemory) Get(_ context.Context, ref Ref) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[ref]
	if !ok {
		return nil, "", ErrNotFound
	}
	return append([]byte(nil), obj.data...), obj.mediaType, nil
}
