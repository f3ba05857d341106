// Package ingest holds the source adapters that fetch raw leads and
// normalize them into lead.Record values. Adapters only populate fields; all
// compliance decisions happen downstream in the pipeline.
package ingest

import (
	"time"

	"leadgate/internal/lead"
)

// Normalize fills in the fields a source may omit: lead ID, source tag and
// timestamps. It never touches consent flags; absent consent stays false.
func Normalize(record lead.Record, source lead.Source, now time.Time) lead.Record {
	record.Source = source
	if record.LeadID == "" {
		record.LeadID = lead.NewLeadID(now)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now.UTC()
	}
	record.ImportedAt = now.UTC()
	return record
}
