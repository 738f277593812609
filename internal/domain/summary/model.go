// Package summary produces plain-language digests of a patient's aggregated
// records. Generation goes through an AI collaborator when one is reachable
// and falls back to a deterministic rule-based digest when it is not; the
// caller cannot tell a slow model from a missing one beyond the source tag.
package summary

import (
	"time"

	"github.com/google/uuid"
)

// Disclaimer is attached verbatim to every summary regardless of source.
const Disclaimer = "DISCLAIMER: This is informational only, not medical advice. " +
	"AI summaries may be inaccurate. Always verify with original records and " +
	"consult your healthcare provider."

type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Summary is one generated digest, persisted so the latest can be re-served
// without regenerating.
type Summary struct {
	ID               uuid.UUID `db:"id" json:"id"`
	PatientID        uuid.UUID `db:"patient_id" json:"patient_id"`
	ClinicianSummary string    `db:"clinician_summary" json:"clinician_summary"`
	PatientSummary   string    `db:"patient_summary" json:"patient_summary"`
	Disclaimer       string    `db:"disclaimer" json:"disclaimer"`
	Source           Source    `db:"source" json:"source"`
	Model            string    `db:"model" json:"model,omitempty"`
	GeneratedAt      time.Time `db:"generated_at" json:"generated_at"`
}

// Draft is what a generator returns before the service stamps identity,
// disclaimer and provenance onto it.
type Draft struct {
	ClinicianSummary string `json:"clinician_summary"`
	PatientSummary   string `json:"patient_summary"`
}
