// Package audit provides the append-only compliance trail for the lead
// pipeline. Every record that enters the pipeline leaves exactly one outcome
// entry here; the trail is fail-closed because an unauditable outcome is not
// an acceptable outcome in a compliance system.
package audit

import "time"

// Kind classifies audit entries by pipeline outcome.
type Kind string

const (
	// KindLeadRejected is written once for every record the consent gate
	// refuses. Detail carries the rejection reason.
	KindLeadRejected Kind = "lead_rejected"

	// KindLeadStored is written once for every record durably persisted in
	// the primary store.
	KindLeadStored Kind = "lead_stored"

	// KindLeadStoreFailed is written once for every record whose primary
	// store write failed. Detail carries the error text.
	KindLeadStoreFailed Kind = "lead_store_failed"

	// KindLeadArchiveFailed is a warning-grade entry noting that the
	// secondary archive write failed for a record that was still stored.
	// It accompanies, never replaces, the record's KindLeadStored entry.
	KindLeadArchiveFailed Kind = "lead_archive_failed"
)

// Event is one immutable trail entry. Field names follow the wire format read
// by external compliance tooling.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Kind      Kind              `json:"event_kind"`
	LeadID    string            `json:"lead_id"`
	Detail    map[string]string `json:"detail,omitempty"`
	Actor     string            `json:"actor"`
	Origin    string            `json:"origin"`
}
