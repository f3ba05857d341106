package store

import (
	"context"
	"sync"

	"leadgate/internal/lead"
)

// InMemoryStore mirrors the postgres upsert semantics for unit tests: first
// write wins for all fields except imported_at.
type InMemoryStore struct {
	mu    sync.RWMutex
	leads map[string]lead.Protected

	// FailFor makes Upsert fail for specific lead IDs, to exercise
	// per-record failure isolation in pipeline tests.
	FailFor map[string]error
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{leads: make(map[string]lead.Protected)}
}

func (s *InMemoryStore) Upsert(_ context.Context, protected lead.Protected) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.FailFor[protected.LeadID]; ok {
		return false, err
	}

	existing, ok := s.leads[protected.LeadID]
	if ok {
		existing.ImportedAt = protected.ImportedAt
		s.leads[protected.LeadID] = existing
		return false, nil
	}
	s.leads[protected.LeadID] = protected
	return true, nil
}

func (s *InMemoryStore) Get(_ context.Context, leadID string) (lead.Protected, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	protected, ok := s.leads[leadID]
	if !ok {
		return lead.Protected{}, ErrNotFound
	}
	return protected, nil
}

// Len reports the number of stored rows. Test helper.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.leads)
}
