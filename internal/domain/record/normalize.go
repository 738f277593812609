package record

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// ValidationError rejects a whole upload: the document shape is wrong or a
// category is unknown. A single bad date never raises one; it degrades to a
// missing-date condition on that entry alone.
type ValidationError struct {
	Reason string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

const (
	ReasonMissingHospital   = "missing_hospital"
	ReasonMissingPatientKey = "missing_patient_id"
	ReasonMissingRecords    = "missing_records"
	ReasonUnknownCategory   = "unknown_category"
)

// fieldSynonyms maps source field names onto canonical ones, per category.
// Hospitals name the same measurements differently.
var fieldSynonyms = map[Category]map[string]string{
	CategoryVitals: {
		"recorded_date": "date",
	},
	CategoryLabs: {
		"test_date":         "date",
		"hemoglobin_a1c":    "a1c",
		"cholesterol_total": "total_cholesterol",
	},
	CategoryMeds: {
		"start_date": "date",
		"name":       "medication",
	},
	CategoryEncounters: {
		"encounter_date": "date",
	},
}

// interpretedFields is the per-category allow-list of fields downstream
// rules understand. Unknown fields are preserved in the entry but never
// interpreted.
var interpretedFields = map[Category][]string{
	CategoryVitals:     {"date", "blood_pressure", "heart_rate", "bmi"},
	CategoryLabs:       {"date", "total_cholesterol", "a1c"},
	CategoryMeds:       {"medication", "dose", "frequency"},
	CategoryEncounters: {"date", "type", "provider"},
}

// dateLayouts are tried in order when canonicalizing a date string.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Normalize maps one source document into canonical entries, grouped by
// category in canonical order and by original entry order within each
// category. It validates the top-level shape and rejects unknown categories;
// it never fails on the contents of an individual entry.
func Normalize(doc *SourceDocument) ([]*Entry, *ValidationError) {
	if strings.TrimSpace(doc.Hospital) == "" {
		return nil, &ValidationError{Reason: ReasonMissingHospital, Detail: "document has no hospital"}
	}
	if strings.TrimSpace(doc.PatientKey) == "" {
		return nil, &ValidationError{Reason: ReasonMissingPatientKey, Detail: "document has no patient_id"}
	}
	if doc.Records == nil {
		return nil, &ValidationError{Reason: ReasonMissingRecords, Detail: "document has no records mapping"}
	}

	// Resolve every top-level key before emitting anything, so an unknown
	// category rejects the whole document. Keys are walked in sorted order:
	// two aliases of the same category ("meds" and "medications") must
	// concatenate the same way on every run.
	keys := make([]string, 0, len(doc.Records))
	for key := range doc.Records {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	buckets := make(map[Category][]map[string]interface{}, len(doc.Records))
	for _, key := range keys {
		cat, ok := ParseCategory(key)
		if !ok {
			return nil, &ValidationError{Reason: ReasonUnknownCategory, Detail: key}
		}
		buckets[cat] = append(buckets[cat], doc.Records[key].Entries...)
	}

	var entries []*Entry
	for _, cat := range Categories {
		raws, ok := buckets[cat]
		if !ok {
			continue
		}
		for i, raw := range raws {
			entries = append(entries, normalizeEntry(doc.Hospital, cat, raw, i))
		}
	}
	return entries, nil
}

// normalizeEntry maps a single raw entry: renames synonym fields, derives
// BMI from weight/height when absent, and canonicalizes the date. Missing
// optional fields stay absent; they are never defaulted to a sentinel.
func normalizeEntry(hospital string, cat Category, raw map[string]interface{}, seq int) *Entry {
	fields := make(map[string]interface{}, len(raw))
	synonyms := fieldSynonyms[cat]
	for k, v := range raw {
		key := normalizeKey(k)
		if canonical, ok := synonyms[key]; ok {
			// An explicit canonical field wins over its synonym.
			if _, exists := raw[canonical]; exists {
				continue
			}
			key = canonical
		}
		fields[key] = v
	}

	if cat == CategoryVitals {
		deriveBMI(fields)
	}

	e := &Entry{
		Hospital: hospital,
		Category: cat,
		Fields:   fields,
		Seq:      seq,
	}

	if rawDate, ok := fields["date"].(string); ok && rawDate != "" {
		if d, ok := parseDate(rawDate); ok {
			e.Date = &d
		} else {
			// Unparsable date: keep the original text and leave the
			// canonical date unset so detection can flag it.
			e.RawDate = rawDate
			delete(fields, "date")
		}
	}

	return e
}

// deriveBMI computes bmi from weight_lbs and height_inches when the source
// did not report one: 703 * lbs / inches².
func deriveBMI(fields map[string]interface{}) {
	if _, ok := fields["bmi"]; ok {
		return
	}
	weight, wok := numeric(fields["weight_lbs"])
	height, hok := numeric(fields["height_inches"])
	if !wok || !hok || height <= 0 {
		return
	}
	bmi := weight / (height * height) * 703
	fields["bmi"] = math.Round(bmi*10) / 10
}

func numeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			// Truncate to the calendar date; time-of-day is not part of
			// the canonical representation.
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
