package idempotency

import (
	"context"
	"sync"

	"github.com/transitops/user-service/internal/ports/out/idempotency"
)

// Store is an in-memory implementation of idempotency.Store.
// It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	m  map[idempotency.Fingerprint]idempotency.Record
}

func NewStore() *Store {
	return &Store{
		m: make(map[idempotency.Fingerprint]idempotency.Record),
	}
}

func (s *Store) Get(_ context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.m[fp]
	if !ok {
		return idempotency.Record{}, false, nil
	}
	rec.Body = append([]byte(nil), rec.Body...)
	return rec, true, nil
}

func (s *Store) Put(_ context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Body = append([]byte(nil), rec.Body...)
	s.m[fp] = rec
	return nil
}

var _ idempotency.Store = (*Store)(nil)
