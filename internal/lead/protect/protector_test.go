package protect

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"leadgate/internal/lead"
)

type ProtectorSuite struct {
	suite.Suite
	protector *Protector
}

func TestProtectorSuite(t *testing.T) {
	suite.Run(t, new(ProtectorSuite))
}

func (s *ProtectorSuite) SetupTest() {
	var err error
	s.protector, err = New([]byte("test-key-material"))
	s.Require().NoError(err)
}

func (s *ProtectorSuite) TestNew() {
	s.Run("empty key material is rejected", func() {
		_, err := New(nil)
		s.Require().ErrorIs(err, ErrMissingKey)
	})

	s.Run("any non-empty key material works", func() {
		p, err := New([]byte("k"))
		s.NoError(err)
		s.NotNil(p)
	})
}

func (s *ProtectorSuite) TestFieldRoundTrip() {
	for _, field := range lead.RegulatedFieldNames {
		s.Run(field, func() {
			plaintext := "sensitive value for " + field
			sealed, err := s.protector.EncryptField(field, plaintext)
			s.Require().NoError(err)
			s.NotEqual(plaintext, sealed)

			recovered, err := s.protector.DecryptField(field, sealed)
			s.Require().NoError(err)
			s.Equal(plaintext, recovered)
		})
	}
}

func (s *ProtectorSuite) TestDeterministicEncryption() {
	first, err := s.protector.EncryptField("email", "jane@example.com")
	s.Require().NoError(err)
	second, err := s.protector.EncryptField("email", "jane@example.com")
	s.Require().NoError(err)
	s.Equal(first, second, "re-protecting identical input must be byte-identical")

	other, err := s.protector.EncryptField("email", "john@example.com")
	s.Require().NoError(err)
	s.NotEqual(first, other)
}

func (s *ProtectorSuite) TestCiphertextBoundToField() {
	sealed, err := s.protector.EncryptField("email", "jane@example.com")
	s.Require().NoError(err)

	_, err = s.protector.DecryptField("phone", sealed)
	s.Require().ErrorIs(err, ErrInvalidCiphertext)
}

func (s *ProtectorSuite) TestWrongKeyCannotDecrypt() {
	sealed, err := s.protector.EncryptField("email", "jane@example.com")
	s.Require().NoError(err)

	other, err := New([]byte("a different key"))
	s.Require().NoError(err)
	_, err = other.DecryptField("email", sealed)
	s.Require().ErrorIs(err, ErrInvalidCiphertext)
}

func (s *ProtectorSuite) TestEmptyFieldsPassThrough() {
	sealed, err := s.protector.EncryptField("email", "")
	s.Require().NoError(err)
	s.Empty(sealed, "empty plaintext must never produce ciphertext")

	recovered, err := s.protector.DecryptField("email", "")
	s.Require().NoError(err)
	s.Empty(recovered)
}

func (s *ProtectorSuite) TestProtectRecord() {
	record := lead.Record{
		LeadID:          "LEAD-1",
		Source:          lead.SourceFlatFile,
		FirstName:       "Jane",
		Email:           "jane@example.com",
		Phone:           "555-0100",
		DateOfBirth:     "1980-02-03",
		HouseholdIncome: "54000",
		ConsentGiven:    true,
		TCPACompliant:   true,
	}

	protected, err := s.protector.Protect(record)
	s.Require().NoError(err)

	s.Run("input record is not mutated", func() {
		s.Equal("jane@example.com", record.Email)
	})

	s.Run("non-regulated fields survive untouched", func() {
		s.Equal("Jane", protected.FirstName)
		s.Equal(lead.SourceFlatFile, protected.Source)
		s.True(protected.ConsentGiven)
	})

	s.Run("every populated regulated field becomes ciphertext", func() {
		for _, field := range lead.RegulatedFieldNames {
			plain, _ := record.RegulatedValue(field)
			sealed, _ := protected.Record.RegulatedValue(field)
			if plain == "" {
				s.Empty(sealed)
				continue
			}
			s.NotEqual(plain, sealed)

			recovered, err := s.protector.DecryptField(field, sealed)
			s.Require().NoError(err)
			s.Equal(plain, recovered)
		}
	})

	s.Run("empty regulated fields stay empty", func() {
		s.Empty(protected.HealthConditions)
	})

	s.Run("fingerprint derives from email", func() {
		s.Equal(s.protector.Fingerprint("jane@example.com"), protected.Fingerprint)
	})
}

func (s *ProtectorSuite) TestFingerprint() {
	s.Run("deterministic", func() {
		s.Equal(s.protector.Fingerprint("jane@example.com"), s.protector.Fingerprint("jane@example.com"))
	})

	s.Run("normalizes case and whitespace", func() {
		s.Equal(s.protector.Fingerprint("jane@example.com"), s.protector.Fingerprint("  Jane@Example.COM "))
	})

	s.Run("distinct inputs diverge", func() {
		seen := make(map[string]string)
		inputs := []string{
			"jane@example.com", "john@example.com", "j.doe@example.com",
			"555-0100", "555-0101", "1980-02-03", "x", "",
		}
		for _, in := range inputs {
			fp := s.protector.Fingerprint(in)
			if prev, ok := seen[fp]; ok {
				s.Failf("collision", "%q and %q share fingerprint", prev, in)
			}
			seen[fp] = in
		}
	})

	s.Run("keyed per protector", func() {
		other, err := New([]byte("another key"))
		s.Require().NoError(err)
		s.NotEqual(s.protector.Fingerprint("jane@example.com"), other.Fingerprint("jane@example.com"))
	})

	s.Run("fingerprint is not the ciphertext", func() {
		sealed, err := s.protector.EncryptField("email", "jane@example.com")
		s.Require().NoError(err)
		s.NotEqual(sealed, s.protector.Fingerprint("jane@example.com"))
	})
}

func (s *ProtectorSuite) TestFingerprintFallsBackToPhoneThenLeadID() {
	byPhone, err := s.protector.Protect(lead.Record{LeadID: "L1", Phone: "555-0100"})
	s.Require().NoError(err)
	s.Equal(s.protector.Fingerprint("555-0100"), byPhone.Fingerprint)

	byID, err := s.protector.Protect(lead.Record{LeadID: "L1"})
	s.Require().NoError(err)
	s.Equal(s.protector.Fingerprint("L1"), byID.Fingerprint)
}

func (s *ProtectorSuite) TestNoFingerprintWithoutIdentityFields() {
	// No email, phone or lead ID: a fingerprint of the empty string would
	// make all such records alias each other in the dedup index.
	protected, err := s.protector.Protect(lead.Record{FirstName: "Jane"})
	s.Require().NoError(err)
	s.Empty(protected.Fingerprint)
}
