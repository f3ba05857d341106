package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"leadgate/internal/lead"
)

// CSVReader parses flat-file exports. The first row must be a header; column
// names follow the upstream export convention (dob, zip, consent,
// tcpa_consent) with the normalized names accepted as aliases.
type CSVReader struct {
	now func() time.Time
}

func NewCSVReader() *CSVReader {
	return &CSVReader{now: time.Now}
}

// Read consumes the whole file and returns normalized records. A malformed
// row aborts the parse; partial batches are worse than loud failures here
// because consent columns must never be silently misaligned.
func (c *CSVReader) Read(r io.Reader) ([]lead.Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var records []lead.Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		field := func(names ...string) string {
			for _, name := range names {
				if i, ok := index[name]; ok && i < len(row) {
					return strings.TrimSpace(row[i])
				}
			}
			return ""
		}

		record := lead.Record{
			LeadID:           field("lead_id"),
			FirstName:        field("first_name"),
			LastName:         field("last_name"),
			Email:            field("email"),
			Phone:            field("phone"),
			DateOfBirth:      field("dob", "date_of_birth"),
			ZipCode:          field("zip", "zip_code"),
			State:            field("state"),
			CoverageType:     field("coverage_type"),
			HouseholdIncome:  field("household_income"),
			HealthConditions: field("health_conditions"),
			Notes:            field("notes"),
			ConsentGiven:     parseBool(field("consent", "consent_given")),
			TCPACompliant:    parseBool(field("tcpa_consent", "tcpa_compliant")),
		}
		records = append(records, Normalize(record, lead.SourceFlatFile, c.now()))
	}
	return records, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "y":
		return true
	}
	return false
}
