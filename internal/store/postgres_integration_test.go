//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"leadgate/internal/lead"
	"leadgate/internal/store"
	"leadgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgresStore(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "leads"))
}

func protectedLead(leadID string, importedAt time.Time) lead.Protected {
	return lead.Protected{
		Record: lead.Record{
			LeadID:        leadID,
			Source:        lead.SourceFlatFile,
			FirstName:     "Jane",
			LastName:      "Doe",
			Email:         "ciphertext-email",
			Phone:         "ciphertext-phone",
			DateOfBirth:   "ciphertext-dob",
			ZipCode:       "73301",
			State:         "TX",
			CoverageType:  "medicare",
			ConsentGiven:  true,
			TCPACompliant: true,
			CreatedAt:     importedAt.Add(-time.Hour),
			ImportedAt:    importedAt,
		},
		Fingerprint: "fp-" + leadID,
	}
}

func (s *PostgresStoreSuite) TestUpsertCreatesThenRefreshes() {
	ctx := context.Background()
	first := time.Date(2025, 11, 14, 10, 0, 0, 0, time.UTC)
	second := first.Add(2 * time.Hour)

	created, err := s.store.Upsert(ctx, protectedLead("L1", first))
	s.Require().NoError(err)
	s.True(created)

	// Replay with changed content: only imported_at may move.
	replay := protectedLead("L1", second)
	replay.FirstName = "Changed"
	replay.Email = "ciphertext-other"
	created, err = s.store.Upsert(ctx, replay)
	s.Require().NoError(err)
	s.False(created, "replay must not report a fresh insert")

	var count int
	s.Require().NoError(s.postgres.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM leads").Scan(&count))
	s.Equal(1, count, "replay must not create a second row")

	stored, err := s.store.Get(ctx, "L1")
	s.Require().NoError(err)
	s.Equal("Jane", stored.FirstName, "first write wins for content")
	s.Equal("ciphertext-email", stored.Email)
	s.True(stored.ImportedAt.Equal(second), "imported_at follows the latest import")
}

func (s *PostgresStoreSuite) TestGetRoundTrip() {
	ctx := context.Background()
	protected := protectedLead("L1", time.Date(2025, 11, 14, 10, 0, 0, 0, time.UTC))

	_, err := s.store.Upsert(ctx, protected)
	s.Require().NoError(err)

	stored, err := s.store.Get(ctx, "L1")
	s.Require().NoError(err)
	s.Equal(protected.LeadID, stored.LeadID)
	s.Equal(protected.Source, stored.Source)
	s.Equal(protected.Fingerprint, stored.Fingerprint)
	s.Equal(protected.DateOfBirth, stored.DateOfBirth, "ciphertext columns pass through opaquely")
	s.True(protected.CreatedAt.Equal(stored.CreatedAt))
}

func (s *PostgresStoreSuite) TestGetUnknownLead() {
	_, err := s.store.Get(context.Background(), "missing")
	s.Require().ErrorIs(err, store.ErrNotFound)
}

func (s *PostgresStoreSuite) TestEnsureSchemaIsIdempotent() {
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}
