package target

import (
	"context"
	"errors"
	"sync"

	"echoburst/internal/runner"
)

var ErrInvalidPerson = errors.New("person requires an email")

// PersonStore persists a person and returns it as read back from the
// backend, so the caller can echo exactly what was stored.
type PersonStore interface {
	AddPerson(ctx context.Context, p runner.Record) (runner.Record, error)
	Close() error
}

// MemoryStore keeps the latest record per email.
type MemoryStore struct {
	mu      sync.RWMutex
	persons map[string]runner.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{persons: make(map[string]runner.Record)}
}

func (s *MemoryStore) AddPerson(_ context.Context, p runner.Record) (runner.Record, error) {
	if p.Email == "" {
		return runner.Record{}, ErrInvalidPerson
	}
	s.mu.Lock()
	s.persons[p.Email] = p
	s.mu.Unlock()
	return p, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.persons)
}

func (s *MemoryStore) Close() error { return nil }
