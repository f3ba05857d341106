// Package store is the durable, queryable primary sink for protected leads.
// Writes are idempotent on lead_id: replaying an import refreshes the
// imported_at timestamp and changes nothing else.
package store

import (
	"context"
	"errors"

	"leadgate/internal/lead"
)

// ErrNotFound is returned when no lead exists for the requested ID.
var ErrNotFound = errors.New("store: lead not found")

// Store is the primary persistence contract. Only protected leads cross this
// boundary; the store never sees regulated plaintext.
type Store interface {
	// Upsert writes the lead, refreshing only imported_at when the lead ID
	// already exists. Reports whether a new row was created.
	Upsert(ctx context.Context, protected lead.Protected) (created bool, err error)

	// Get returns the stored form of one lead, regulated fields opaque.
	Get(ctx context.Context, leadID string) (lead.Protected, error)
}
