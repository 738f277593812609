package record

import (
	"time"

	"github.com/google/uuid"
)

// Category is one of the four fixed record categories. There is no
// open-ended category set; anything else is rejected at ingestion.
type Category string

const (
	CategoryVitals     Category = "vitals"
	CategoryLabs       Category = "labs"
	CategoryMeds       Category = "meds"
	CategoryEncounters Category = "encounters"
)

// Categories lists the four categories in canonical order. This order is the
// basis for grouping normalized output and for deterministic processing
// downstream.
var Categories = []Category{CategoryVitals, CategoryLabs, CategoryMeds, CategoryEncounters}

// ParseCategory maps a source category name onto a canonical Category.
// Hospitals disagree on naming: "medications" and "Meds" both mean meds.
func ParseCategory(s string) (Category, bool) {
	switch normalizeKey(s) {
	case "vitals":
		return CategoryVitals, true
	case "labs":
		return CategoryLabs, true
	case "meds", "medications":
		return CategoryMeds, true
	case "encounters":
		return CategoryEncounters, true
	}
	return "", false
}

// ValidScope reports whether every name is a known category. Used by the
// sharing domain to validate token scopes.
func ValidScope(names []Category) bool {
	if len(names) == 0 {
		return false
	}
	for _, n := range names {
		if _, ok := ParseCategory(string(n)); !ok {
			return false
		}
	}
	return true
}

// SourceDocument is the raw upload from one hospital. Immutable once
// ingested; re-ingestion supersedes, never mutates.
type SourceDocument struct {
	Hospital         string                    `json:"hospital"`
	HospitalLocation string                    `json:"hospital_location"`
	PatientKey       string                    `json:"patient_id"`
	Records          map[string]CategoryBucket `json:"records"`
}

// CategoryBucket holds the raw entries for one category of a source document.
type CategoryBucket struct {
	Entries []map[string]interface{} `json:"entries"`
}

// Entry is one normalized, hospital-tagged data point. Entries across
// hospitals for the same patient are unioned, never merged in place.
type Entry struct {
	ID        uuid.UUID              `db:"id" json:"id"`
	PatientID uuid.UUID              `db:"patient_id" json:"patient_id"`
	Hospital  string                 `db:"hospital" json:"hospital"`
	Category  Category               `db:"category" json:"category"`
	Date      *time.Time             `db:"entry_date" json:"date,omitempty"`
	RawDate   string                 `db:"raw_date" json:"raw_date,omitempty"`
	Fields    map[string]interface{} `db:"fields" json:"fields"`
	Seq       int                    `db:"seq" json:"seq"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// HasDate reports whether the entry carries a usable calendar date.
func (e *Entry) HasDate() bool {
	return e.Date != nil
}

// Float returns the named field as a float64 when present and numeric.
// JSON numbers decode as float64; integers stored by tests are accepted too.
func (e *Entry) Float(name string) (float64, bool) {
	v, ok := e.Fields[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// String returns the named field as a string when present.
func (e *Entry) String(name string) (string, bool) {
	v, ok := e.Fields[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
