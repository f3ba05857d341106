package audit

import "context"

// Store is an append-only event sink. Implementations never overwrite or
// delete entries.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByLead(ctx context.Context, leadID string) ([]Event, error)
}
