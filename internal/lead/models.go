package lead

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source identifies which adapter produced a record. The value is stored
// verbatim, so renaming a source is a schema-level decision.
type Source string

const (
	SourceSocialAd    Source = "social-ad"
	SourceFlatFile    Source = "flat-file"
	SourceMarketplace Source = "marketplace-api"
)

// Valid reports whether the source is one of the known adapters.
func (s Source) Valid() bool {
	switch s {
	case SourceSocialAd, SourceFlatFile, SourceMarketplace:
		return true
	}
	return false
}

// Record is one normalized lead as handed over by a source adapter. Regulated
// fields hold plaintext only until the protector has run; after that the same
// struct shape carries ciphertext inside Protected.
type Record struct {
	LeadID string `json:"lead_id"`
	Source Source `json:"source"`

	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	ZipCode              string `json:"zip_code,omitempty"`
	State                string `json:"state,omitempty"`
	CoverageType         string `json:"coverage_type,omitempty"`
	Notes                string `json:"notes,omitempty"`
	CurrentCoverage      bool   `json:"current_coverage"`
	PreferredContactTime string `json:"preferred_contact_time,omitempty"`

	// Regulated fields. Never persisted in plaintext.
	DateOfBirth      string `json:"date_of_birth,omitempty"`
	HouseholdIncome  string `json:"household_income,omitempty"`
	HealthConditions string `json:"health_conditions,omitempty"`
	Phone            string `json:"phone,omitempty"`
	Email            string `json:"email,omitempty"`

	ConsentGiven  bool `json:"consent_given"`
	TCPACompliant bool `json:"tcpa_compliant"`

	CreatedAt  time.Time `json:"created_at"`
	ImportedAt time.Time `json:"imported_at"`
}

// Protected is a Record whose regulated fields have been replaced with
// ciphertext, plus a one-way fingerprint used for duplicate detection.
// Only Protected values may reach the persistence layer.
type Protected struct {
	Record
	Fingerprint string `json:"fingerprint"`
}

// regulatedAccessor pairs a getter and setter for one regulated field so the
// protector walks a declared list instead of a hand-maintained switch. Adding
// a regulated field to Record without extending this map is a compile-time
// no-op but is caught by TestRegulatedFieldsCoverage.
type regulatedAccessor struct {
	get func(*Record) string
	set func(*Record, string)
}

// RegulatedFieldNames lists the regulated fields in a stable order. The
// protector and the schema both derive from this list.
var RegulatedFieldNames = []string{
	"date_of_birth",
	"household_income",
	"health_conditions",
	"phone",
	"email",
}

var regulatedFields = map[string]regulatedAccessor{
	"date_of_birth": {
		get: func(r *Record) string { return r.DateOfBirth },
		set: func(r *Record, v string) { r.DateOfBirth = v },
	},
	"household_income": {
		get: func(r *Record) string { return r.HouseholdIncome },
		set: func(r *Record, v string) { r.HouseholdIncome = v },
	},
	"health_conditions": {
		get: func(r *Record) string { return r.HealthConditions },
		set: func(r *Record, v string) { r.HealthConditions = v },
	},
	"phone": {
		get: func(r *Record) string { return r.Phone },
		set: func(r *Record, v string) { r.Phone = v },
	},
	"email": {
		get: func(r *Record) string { return r.Email },
		set: func(r *Record, v string) { r.Email = v },
	},
}

func init() {
	for _, name := range RegulatedFieldNames {
		if _, ok := regulatedFields[name]; !ok {
			panic(fmt.Sprintf("lead: regulated field %q has no accessor", name))
		}
	}
	if len(regulatedFields) != len(RegulatedFieldNames) {
		panic("lead: regulated accessor map out of sync with field list")
	}
}

// RegulatedValue returns the current value of a declared regulated field.
func (r *Record) RegulatedValue(name string) (string, bool) {
	acc, ok := regulatedFields[name]
	if !ok {
		return "", false
	}
	return acc.get(r), true
}

// SetRegulatedValue overwrites a declared regulated field.
func (r *Record) SetRegulatedValue(name, value string) bool {
	acc, ok := regulatedFields[name]
	if !ok {
		return false
	}
	acc.set(r, value)
	return true
}

// NewLeadID generates an identifier for sources that do not supply one.
func NewLeadID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("LEAD-%s-%s", now.UTC().Format("20060102150405"), suffix)
}
