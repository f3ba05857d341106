package lead

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRegulatedFieldsCoverage pins the regulated field list. Extending Record
// with a new regulated field must extend this list, the accessor map, and
// this test together.
func TestRegulatedFieldsCoverage(t *testing.T) {
	require.Equal(t, []string{
		"date_of_birth",
		"household_income",
		"health_conditions",
		"phone",
		"email",
	}, RegulatedFieldNames)

	r := Record{
		DateOfBirth:      "dob",
		HouseholdIncome:  "income",
		HealthConditions: "conditions",
		Phone:            "phone",
		Email:            "email",
	}
	for _, name := range RegulatedFieldNames {
		value, ok := r.RegulatedValue(name)
		require.True(t, ok, name)
		require.NotEmpty(t, value, name)

		require.True(t, r.SetRegulatedValue(name, "updated"))
		value, _ = r.RegulatedValue(name)
		require.Equal(t, "updated", value)
	}
}

func TestRegulatedValueUnknownField(t *testing.T) {
	var r Record
	_, ok := r.RegulatedValue("first_name")
	assert.False(t, ok, "non-regulated fields are not reachable through the regulated accessors")
	assert.False(t, r.SetRegulatedValue("first_name", "x"))
}

func TestNewLeadID(t *testing.T) {
	now := time.Date(2025, 11, 14, 9, 30, 0, 0, time.UTC)
	id := NewLeadID(now)
	assert.Regexp(t, regexp.MustCompile(`^LEAD-20251114093000-[0-9a-f]{8}$`), id)

	assert.NotEqual(t, id, NewLeadID(now), "IDs must be unique even within one second")
}

func TestSourceValid(t *testing.T) {
	assert.True(t, SourceSocialAd.Valid())
	assert.True(t, SourceFlatFile.Valid())
	assert.True(t, SourceMarketplace.Valid())
	assert.False(t, Source("csv").Valid())
	assert.False(t, Source("").Valid())
}
