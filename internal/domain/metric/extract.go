// Package metric projects canonical record entries into per-metric time
// series for charting and summaries. Extraction is a pure, side-effect-free
// projection; nothing here is persisted.
package metric

import (
	"sort"
	"time"

	"github.com/medagg/medagg/internal/domain/record"
)

type Name string

const (
	BMI              Name = "bmi"
	TotalCholesterol Name = "total_cholesterol"
	A1C              Name = "a1c"
)

// Names lists the supported metrics in canonical order.
var Names = []Name{BMI, TotalCholesterol, A1C}

// source maps each metric onto the category and field that carries it.
var source = map[Name]struct {
	category record.Category
	field    string
}{
	BMI:              {category: record.CategoryVitals, field: "bmi"},
	TotalCholesterol: {category: record.CategoryLabs, field: "total_cholesterol"},
	A1C:              {category: record.CategoryLabs, field: "a1c"},
}

// Supported resolves a metric name from a request path segment.
func Supported(s string) (Name, bool) {
	switch Name(s) {
	case BMI, TotalCholesterol, A1C:
		return Name(s), true
	}
	return "", false
}

// Point is one charted value from one hospital on one date.
type Point struct {
	Metric   Name      `json:"metric"`
	Hospital string    `json:"hospital"`
	Date     time.Time `json:"date"`
	Value    float64   `json:"value"`
}

// Extract emits one point per entry carrying the named metric, sorted by
// date ascending. Entries without a usable date are excluded; a chart needs
// an x-axis value.
func Extract(entries []*record.Entry, name Name) []Point {
	src, ok := source[name]
	if !ok {
		return nil
	}

	var points []Point
	for _, e := range entries {
		if e.Category != src.category || !e.HasDate() {
			continue
		}
		v, ok := e.Float(src.field)
		if !ok {
			continue
		}
		points = append(points, Point{
			Metric:   name,
			Hospital: e.Hospital,
			Date:     *e.Date,
			Value:    v,
		})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points
}

// ExtractAll returns the series for every supported metric, keyed by name.
func ExtractAll(entries []*record.Entry) map[Name][]Point {
	out := make(map[Name][]Point, len(Names))
	for _, n := range Names {
		out[n] = Extract(entries, n)
	}
	return out
}
