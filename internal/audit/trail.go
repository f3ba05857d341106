package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Mirror fans appended events out to a secondary sink (e.g. a Kafka topic for
// SIEM consumers). Mirroring is best-effort: implementations report failures
// through their own logging, never to the caller.
type Mirror interface {
	Publish(ctx context.Context, event Event)
}

// Trail records pipeline outcomes with fail-closed semantics: if the durable
// store cannot append the entry, the error propagates and the calling
// operation must fail. Auxiliary metadata (origin address) is best-effort.
type Trail struct {
	store  Store
	mirror Mirror
	origin *OriginResolver
	actor  string
	logger *slog.Logger
}

// Option configures the Trail.
type Option func(*Trail)

// WithMirror attaches a best-effort secondary sink.
func WithMirror(m Mirror) Option {
	return func(t *Trail) { t.mirror = m }
}

// WithOriginResolver overrides the default origin lookup.
func WithOriginResolver(r *OriginResolver) Option {
	return func(t *Trail) { t.origin = r }
}

// NewTrail builds a recorder writing to the given durable store on behalf of
// the named actor.
func NewTrail(store Store, actor string, logger *slog.Logger, opts ...Option) *Trail {
	t := &Trail{
		store:  store,
		origin: NewOriginResolver(""),
		actor:  actor,
		logger: logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type contextKeyActor struct{}

// WithActor attributes audit entries recorded under the returned context to
// the given principal instead of the trail's default actor. The HTTP surface
// uses this to attribute entries to the authenticated caller.
func WithActor(ctx context.Context, actor string) context.Context {
	if actor == "" {
		return ctx
	}
	return context.WithValue(ctx, contextKeyActor{}, actor)
}

func actorFrom(ctx context.Context, fallback string) string {
	if actor, ok := ctx.Value(contextKeyActor{}).(string); ok && actor != "" {
		return actor
	}
	return fallback
}

// Record appends exactly one entry for the given outcome. Returns an error
// only when the durable append failed; the caller must then treat its own
// operation as failed.
func (t *Trail) Record(ctx context.Context, kind Kind, leadID string, detail map[string]string) error {
	event := Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		LeadID:    leadID,
		Detail:    detail,
		Actor:     actorFrom(ctx, t.actor),
		Origin:    t.origin.Resolve(ctx),
	}

	if err := t.store.Append(ctx, event); err != nil {
		t.logger.ErrorContext(ctx, "audit append failed",
			"event_kind", kind,
			"lead_id", leadID,
			"error", err,
		)
		return fmt.Errorf("audit append for lead %s: %w", leadID, err)
	}

	if t.mirror != nil {
		t.mirror.Publish(ctx, event)
	}
	return nil
}

// ListByLead exposes the trail for compliance queries.
func (t *Trail) ListByLead(ctx context.Context, leadID string) ([]Event, error) {
	return t.store.ListByLead(ctx, leadID)
}
