// Package archive is the secondary write-once retention sink. Archive
// failure never changes a record's stored status; it surfaces as a
// warning-grade condition only.
package archive

import (
	"context"
	"errors"

	"leadgate/internal/lead"
)

// ErrAlreadyArchived marks a write-once violation. Replayed imports hit this
// for every record; callers treat it as success.
var ErrAlreadyArchived = errors.New("archive: lead already archived")

// Archive stores the full protected record for long-term retention, keyed by
// source, creation date and lead ID.
type Archive interface {
	Put(ctx context.Context, protected lead.Protected) error
}

// Noop is used when no archive target is configured. Absence of an archive
// disables archiving, not storage.
type Noop struct{}

func (Noop) Put(context.Context, lead.Protected) error { return nil }
