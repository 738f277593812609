package metric

import (
	"testing"
	"time"

	"github.com/medagg/medagg/internal/domain/record"
)

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func entry(cat record.Category, hospital string, date *time.Time, fields map[string]interface{}) *record.Entry {
	return &record.Entry{Hospital: hospital, Category: cat, Date: date, Fields: fields}
}

func TestExtractSortsByDateAscending(t *testing.T) {
	entries := []*record.Entry{
		entry(record.CategoryVitals, "St. Mary", day("2024-03-10"), map[string]interface{}{"bmi": 27.1}),
		entry(record.CategoryVitals, "General", day("2024-01-05"), map[string]interface{}{"bmi": 26.4}),
		entry(record.CategoryVitals, "General", day("2024-02-20"), map[string]interface{}{"bmi": 26.9}),
	}

	points := Extract(entries, BMI)
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i].Date.Before(points[i-1].Date) {
			t.Fatalf("points not sorted ascending: %v before %v", points[i].Date, points[i-1].Date)
		}
	}
	if points[0].Value != 26.4 || points[0].Hospital != "General" {
		t.Fatalf("unexpected first point: %+v", points[0])
	}
}

func TestExtractExcludesDatelessEntries(t *testing.T) {
	entries := []*record.Entry{
		entry(record.CategoryLabs, "General", nil, map[string]interface{}{"a1c": 6.5}),
		entry(record.CategoryLabs, "General", day("2024-04-01"), map[string]interface{}{"a1c": 6.9}),
	}

	points := Extract(entries, A1C)
	if len(points) != 1 {
		t.Fatalf("expected dateless entry excluded, got %d points", len(points))
	}
	if points[0].Value != 6.9 {
		t.Fatalf("unexpected value %v", points[0].Value)
	}
}

func TestExtractIgnoresWrongCategoryAndMissingField(t *testing.T) {
	entries := []*record.Entry{
		// bmi value in a labs entry does not count as the bmi metric.
		entry(record.CategoryLabs, "General", day("2024-01-01"), map[string]interface{}{"bmi": 30.0}),
		entry(record.CategoryVitals, "General", day("2024-01-02"), map[string]interface{}{"blood_pressure": "120/80"}),
		entry(record.CategoryVitals, "General", day("2024-01-03"), map[string]interface{}{"bmi": 24.2}),
	}

	points := Extract(entries, BMI)
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	if !points[0].Date.Equal(*day("2024-01-03")) {
		t.Fatalf("unexpected point date %v", points[0].Date)
	}
}

func TestExtractUnknownMetric(t *testing.T) {
	entries := []*record.Entry{
		entry(record.CategoryVitals, "General", day("2024-01-01"), map[string]interface{}{"bmi": 24.0}),
	}
	if points := Extract(entries, Name("heart_rate")); points != nil {
		t.Fatalf("expected nil for unknown metric, got %v", points)
	}
}

func TestSupported(t *testing.T) {
	for _, n := range Names {
		got, ok := Supported(string(n))
		if !ok || got != n {
			t.Fatalf("Supported(%q) = %q, %v", n, got, ok)
		}
	}
	if _, ok := Supported("cholesterol"); ok {
		t.Fatal("expected cholesterol to be unsupported")
	}
}

func TestExtractAllCoversEverySupportedMetric(t *testing.T) {
	entries := []*record.Entry{
		entry(record.CategoryVitals, "General", day("2024-01-01"), map[string]interface{}{"bmi": 24.0}),
		entry(record.CategoryLabs, "General", day("2024-01-01"), map[string]interface{}{"total_cholesterol": 190.0, "a1c": 5.6}),
	}

	all := ExtractAll(entries)
	if len(all) != len(Names) {
		t.Fatalf("expected %d series, got %d", len(Names), len(all))
	}
	for _, n := range Names {
		if len(all[n]) != 1 {
			t.Fatalf("expected 1 point for %s, got %d", n, len(all[n]))
		}
	}
}
