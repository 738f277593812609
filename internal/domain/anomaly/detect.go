// Package anomaly evaluates data-quality and clinical-risk rules over a
// patient's canonical record entries. Detection is a pure function: the same
// entry sequence always yields the same anomaly list in the same order.
package anomaly

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/google/uuid"

	"github.com/medagg/medagg/internal/domain/record"
)

// Config carries the clinical thresholds. The wide physiological bounds are
// the outlier triggers; the informational normal-range bands used for
// charting do not flag anything. Conflict deltas are the tolerated
// same-date, cross-hospital disagreement per metric.
type Config struct {
	BMIMin  float64
	BMIMax  float64
	CholMax float64
	A1CMax  float64

	BMIConflictDelta  float64
	CholConflictDelta float64
	A1CConflictDelta  float64
}

func DefaultConfig() Config {
	return Config{
		BMIMin:            15,
		BMIMax:            40,
		CholMax:           300,
		A1CMax:            10,
		BMIConflictDelta:  3,
		CholConflictDelta: 60,
		A1CConflictDelta:  1,
	}
}

type Detector struct {
	cfg Config
}

func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// dateBearing reports whether the category is expected to carry a date.
// Medication lists are the one category where a dateless entry is normal.
func dateBearing(cat record.Category) bool {
	return cat != record.CategoryMeds
}

// Detect runs every rule independently over the entries; one entry may
// trigger several anomalies. The result is totally ordered: date ascending
// with dateless entries last, then category, then hospital, then rule kind.
func (d *Detector) Detect(entries []*record.Entry) []Anomaly {
	var out []Anomaly
	out = append(out, detectDuplicates(entries)...)
	out = append(out, detectMissingDates(entries)...)
	out = append(out, d.detectOutliers(entries)...)
	out = append(out, d.detectConflicts(entries)...)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Date == nil && b.Date != nil:
			return false
		case a.Date != nil && b.Date == nil:
			return true
		case a.Date != nil && b.Date != nil && !a.Date.Equal(*b.Date):
			return a.Date.Before(*b.Date)
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		ah, bh := firstHospital(a), firstHospital(b)
		if ah != bh {
			return ah < bh
		}
		return kindRank[a.Kind] < kindRank[b.Kind]
	})
	return out
}

func firstHospital(a Anomaly) string {
	if len(a.Hospitals) == 0 {
		return ""
	}
	return a.Hospitals[0]
}

// detectDuplicates flags the later of two entries that agree on hospital,
// category, date and every field value. Arrival order is the entries' slice
// order, which the normalizer and store both preserve.
func detectDuplicates(entries []*record.Entry) []Anomaly {
	type dupKey struct {
		hospital string
		category record.Category
		date     string
	}
	seen := make(map[dupKey][]*record.Entry)
	var out []Anomaly

	for _, e := range entries {
		key := dupKey{hospital: e.Hospital, category: e.Category, date: dateKey(e)}
		for _, prior := range seen[key] {
			if reflect.DeepEqual(prior.Fields, e.Fields) {
				out = append(out, Anomaly{
					Kind:      KindDuplicate,
					Severity:  SeverityLow,
					Category:  e.Category,
					Date:      e.Date,
					Hospitals: []string{e.Hospital},
					Message:   fmt.Sprintf("duplicate %s entry from %s", e.Category, e.Hospital),
					EntryIDs:  []uuid.UUID{prior.ID, e.ID},
				})
				break
			}
		}
		seen[key] = append(seen[key], e)
	}
	return out
}

func detectMissingDates(entries []*record.Entry) []Anomaly {
	var out []Anomaly
	for _, e := range entries {
		if !dateBearing(e.Category) || e.HasDate() {
			continue
		}
		msg := fmt.Sprintf("missing date in %s entry from %s", e.Category, e.Hospital)
		if e.RawDate != "" {
			msg = fmt.Sprintf("unparsable date %q in %s entry from %s", e.RawDate, e.Category, e.Hospital)
		}
		out = append(out, Anomaly{
			Kind:      KindMissingDate,
			Severity:  SeverityMedium,
			Category:  e.Category,
			Hospitals: []string{e.Hospital},
			Message:   msg,
			EntryIDs:  []uuid.UUID{e.ID},
		})
	}
	return out
}

// metricRule is one outlier threshold over a recognized metric.
type metricRule struct {
	category record.Category
	field    string
	breached func(v float64) bool
	describe func(v float64) string
}

func (d *Detector) outlierRules() []metricRule {
	cfg := d.cfg
	return []metricRule{
		{
			category: record.CategoryVitals,
			field:    "bmi",
			breached: func(v float64) bool { return v < cfg.BMIMin || v > cfg.BMIMax },
			describe: func(v float64) string {
				return fmt.Sprintf("BMI %.2f outside physiological range [%.0f, %.0f]", v, cfg.BMIMin, cfg.BMIMax)
			},
		},
		{
			category: record.CategoryLabs,
			field:    "total_cholesterol",
			breached: func(v float64) bool { return v > cfg.CholMax },
			describe: func(v float64) string {
				return fmt.Sprintf("total cholesterol %.0f mg/dL above %.0f", v, cfg.CholMax)
			},
		},
		{
			category: record.CategoryLabs,
			field:    "a1c",
			breached: func(v float64) bool { return v > cfg.A1CMax },
			describe: func(v float64) string {
				return fmt.Sprintf("A1C %.1f%% above %.0f%%", v, cfg.A1CMax)
			},
		},
	}
}

func (d *Detector) detectOutliers(entries []*record.Entry) []Anomaly {
	rules := d.outlierRules()
	var out []Anomaly
	for _, e := range entries {
		for _, rule := range rules {
			if e.Category != rule.category {
				continue
			}
			v, ok := e.Float(rule.field)
			if !ok || !rule.breached(v) {
				continue
			}
			out = append(out, Anomaly{
				Kind:      KindOutlier,
				Severity:  SeverityHigh,
				Category:  e.Category,
				Date:      e.Date,
				Hospitals: []string{e.Hospital},
				Message:   fmt.Sprintf("%s (reported by %s)", rule.describe(v), e.Hospital),
				EntryIDs:  []uuid.UUID{e.ID},
			})
		}
	}
	return out
}

// conflictMetric pairs a recognized metric with its tolerated
// cross-hospital delta.
type conflictMetric struct {
	category record.Category
	field    string
	delta    float64
	unit     string
}

func (d *Detector) conflictMetrics() []conflictMetric {
	return []conflictMetric{
		{category: record.CategoryVitals, field: "bmi", delta: d.cfg.BMIConflictDelta, unit: ""},
		{category: record.CategoryLabs, field: "total_cholesterol", delta: d.cfg.CholConflictDelta, unit: " mg/dL"},
		{category: record.CategoryLabs, field: "a1c", delta: d.cfg.A1CConflictDelta, unit: "%"},
	}
}

// detectConflicts flags pairs of same-date readings of one metric from
// different hospitals whose values differ by more than the tolerance.
func detectConflictPairs(entries []*record.Entry, m conflictMetric) []Anomaly {
	type reading struct {
		entry *record.Entry
		value float64
	}
	byDate := make(map[string][]reading)
	var dates []string
	for _, e := range entries {
		if e.Category != m.category || !e.HasDate() {
			continue
		}
		v, ok := e.Float(m.field)
		if !ok {
			continue
		}
		k := dateKey(e)
		if _, seen := byDate[k]; !seen {
			dates = append(dates, k)
		}
		byDate[k] = append(byDate[k], reading{entry: e, value: v})
	}

	var out []Anomaly
	for _, k := range dates {
		group := byDate[k]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if a.entry.Hospital == b.entry.Hospital {
					continue
				}
				if math.Abs(a.value-b.value) <= m.delta {
					continue
				}
				hospitals := []string{a.entry.Hospital, b.entry.Hospital}
				sort.Strings(hospitals)
				out = append(out, Anomaly{
					Kind:      KindConflict,
					Severity:  SeverityMedium,
					Category:  m.category,
					Date:      a.entry.Date,
					Hospitals: hospitals,
					Message: fmt.Sprintf("%s disagrees across hospitals: %v%s (%s) vs %v%s (%s)",
						m.field, a.value, m.unit, a.entry.Hospital, b.value, m.unit, b.entry.Hospital),
					EntryIDs: []uuid.UUID{a.entry.ID, b.entry.ID},
				})
			}
		}
	}
	return out
}

func (d *Detector) detectConflicts(entries []*record.Entry) []Anomaly {
	var out []Anomaly
	for _, m := range d.conflictMetrics() {
		out = append(out, detectConflictPairs(entries, m)...)
	}
	return out
}

// dateKey is a stable string form of an entry's date for grouping; dateless
// entries collapse onto the empty key.
func dateKey(e *record.Entry) string {
	if e.Date == nil {
		return ""
	}
	return e.Date.Format("2006-01-02")
}
