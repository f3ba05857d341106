// Package dedup tracks lead fingerprints so repeated identities can be
// flagged across sources without ever touching regulated plaintext. It is
// detection only: duplicates are annotated in the audit trail, never merged.
package dedup

import (
	"context"
	"sync"
)

// Index records fingerprints as it checks them.
type Index interface {
	// Seen reports whether the fingerprint was already recorded for a
	// different lead ID, and records this lead's claim if it is the first.
	Seen(ctx context.Context, fingerprint, leadID string) (bool, error)
}

// InMemoryIndex is the test and single-process implementation.
type InMemoryIndex struct {
	mu    sync.Mutex
	owner map[string]string
}

func NewInMemoryIndex() *InMemoryIndex {
	return &InMemoryIndex{owner: make(map[string]string)}
}

func (i *InMemoryIndex) Seen(_ context.Context, fingerprint, leadID string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if owner, ok := i.owner[fingerprint]; ok {
		return owner != leadID, nil
	}
	i.owner[fingerprint] = leadID
	return false, nil
}
