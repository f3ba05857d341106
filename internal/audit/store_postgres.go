package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore persists trail entries in an append-only table. Inserts are
// idempotent on the event ID so a retried append never duplicates an entry.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the trail table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS audit_events (
			id         UUID PRIMARY KEY,
			timestamp  TIMESTAMPTZ NOT NULL,
			event_kind VARCHAR(64) NOT NULL,
			lead_id    VARCHAR(255) NOT NULL,
			detail     JSONB,
			actor      VARCHAR(255) NOT NULL,
			origin     VARCHAR(64) NOT NULL
		);
		CREATE INDEX IF NOT EXISTS audit_events_lead_id_idx ON audit_events (lead_id);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	detail, err := json.Marshal(event.Detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}

	query := `
		INSERT INTO audit_events (id, timestamp, event_kind, lead_id, detail, actor, origin)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Timestamp,
		string(event.Kind),
		event.LeadID,
		detail,
		event.Actor,
		event.Origin,
	); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByLead(ctx context.Context, leadID string) ([]Event, error) {
	query := `
		SELECT id, timestamp, event_kind, lead_id, detail, actor, origin
		FROM audit_events
		WHERE lead_id = $1
		ORDER BY timestamp ASC
	`
	rows, err := s.db.QueryContext(ctx, query, leadID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event  Event
			kind   string
			detail []byte
		)
		if err := rows.Scan(&event.ID, &event.Timestamp, &kind, &event.LeadID, &detail, &event.Actor, &event.Origin); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Kind = Kind(kind)
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &event.Detail); err != nil {
				return nil, fmt.Errorf("decode audit detail: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
