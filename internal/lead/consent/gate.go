// Package consent holds the admission check every lead must pass before any
// other processing. The check runs against the record exactly as the source
// declared it, never against a derived value.
package consent

import "leadgate/internal/lead"

// ReasonMissingConsent is the audit detail recorded for rejected leads.
const ReasonMissingConsent = "missing_consent"

// Admit reports whether a record may enter the pipeline. Both the marketing
// consent flag and the TCPA compliance flag must be set; a record failing
// either is rejected with ReasonMissingConsent. Pure predicate, no side
// effects.
func Admit(record lead.Record) (bool, string) {
	if record.ConsentGiven && record.TCPACompliant {
		return true, ""
	}
	return false, ReasonMissingConsent
}
