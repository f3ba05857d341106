package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"leadgate/internal/lead"
)

// PostgresStore keeps one row per lead with regulated columns stored as
// opaque ciphertext text.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the leads table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS leads (
			lead_id                VARCHAR(255) PRIMARY KEY,
			source                 VARCHAR(50) NOT NULL,
			first_name             VARCHAR(255),
			last_name              VARCHAR(255),
			zip_code               VARCHAR(10),
			state                  VARCHAR(2),
			coverage_type          VARCHAR(50),
			notes                  TEXT,
			current_coverage       BOOLEAN,
			preferred_contact_time VARCHAR(50),
			date_of_birth          TEXT, -- ciphertext
			household_income       TEXT, -- ciphertext
			health_conditions      TEXT, -- ciphertext
			phone                  TEXT, -- ciphertext
			email                  TEXT, -- ciphertext
			fingerprint            VARCHAR(64) NOT NULL,
			consent_given          BOOLEAN NOT NULL,
			tcpa_compliant         BOOLEAN NOT NULL,
			created_at             TIMESTAMPTZ NOT NULL,
			imported_at            TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS leads_fingerprint_idx ON leads (fingerprint);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure leads schema: %w", err)
	}
	return nil
}

// Upsert inserts the lead or, on conflict, refreshes only imported_at. First
// write wins for every other column; re-imports update freshness, not
// content. The xmax trick distinguishes a fresh insert from a conflict
// update.
func (s *PostgresStore) Upsert(ctx context.Context, protected lead.Protected) (bool, error) {
	query := `
		INSERT INTO leads (
			lead_id, source, first_name, last_name, zip_code, state,
			coverage_type, notes, current_coverage, preferred_contact_time,
			date_of_birth, household_income, health_conditions, phone, email,
			fingerprint, consent_given, tcpa_compliant, created_at, imported_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (lead_id) DO UPDATE SET
			imported_at = EXCLUDED.imported_at
		RETURNING (xmax = 0) AS inserted
	`
	var created bool
	err := s.db.QueryRowContext(ctx, query,
		protected.LeadID,
		string(protected.Source),
		protected.FirstName,
		protected.LastName,
		protected.ZipCode,
		protected.State,
		protected.CoverageType,
		protected.Notes,
		protected.CurrentCoverage,
		protected.PreferredContactTime,
		protected.DateOfBirth,
		protected.HouseholdIncome,
		protected.HealthConditions,
		protected.Phone,
		protected.Email,
		protected.Fingerprint,
		protected.ConsentGiven,
		protected.TCPACompliant,
		protected.CreatedAt,
		protected.ImportedAt,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert lead %s: %w", protected.LeadID, err)
	}
	return created, nil
}

func (s *PostgresStore) Get(ctx context.Context, leadID string) (lead.Protected, error) {
	query := `
		SELECT lead_id, source, first_name, last_name, zip_code, state,
		       coverage_type, notes, current_coverage, preferred_contact_time,
		       date_of_birth, household_income, health_conditions, phone, email,
		       fingerprint, consent_given, tcpa_compliant, created_at, imported_at
		FROM leads
		WHERE lead_id = $1
	`
	var (
		protected lead.Protected
		source    string
	)
	err := s.db.QueryRowContext(ctx, query, leadID).Scan(
		&protected.LeadID,
		&source,
		&protected.FirstName,
		&protected.LastName,
		&protected.ZipCode,
		&protected.State,
		&protected.CoverageType,
		&protected.Notes,
		&protected.CurrentCoverage,
		&protected.PreferredContactTime,
		&protected.DateOfBirth,
		&protected.HouseholdIncome,
		&protected.HealthConditions,
		&protected.Phone,
		&protected.Email,
		&protected.Fingerprint,
		&protected.ConsentGiven,
		&protected.TCPACompliant,
		&protected.CreatedAt,
		&protected.ImportedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return lead.Protected{}, ErrNotFound
	}
	if err != nil {
		return lead.Protected{}, fmt.Errorf("get lead %s: %w", leadID, err)
	}
	protected.Source = lead.Source(source)
	return protected, nil
}
