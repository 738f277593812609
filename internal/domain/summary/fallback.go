package summary

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/medagg/medagg/internal/domain/anomaly"
	"github.com/medagg/medagg/internal/domain/record"
)

// FallbackGenerator builds a rule-based digest without any model call. It is
// deterministic: the same entries and anomalies always produce the same
// draft, so a flaky AI collaborator degrades to stable output.
type FallbackGenerator struct{}

func NewFallbackGenerator() *FallbackGenerator {
	return &FallbackGenerator{}
}

func (FallbackGenerator) Generate(_ context.Context, entries []*record.Entry, anomalies []anomaly.Anomaly) (*Draft, error) {
	if len(entries) == 0 {
		return &Draft{
			ClinicianSummary: "No medical records available for analysis.",
			PatientSummary:   "No medical records have been loaded yet.",
		}, nil
	}

	byCat := make(map[record.Category][]*record.Entry)
	for _, e := range entries {
		byCat[e.Category] = append(byCat[e.Category], e)
	}
	vitals := byCat[record.CategoryVitals]
	labs := byCat[record.CategoryLabs]
	meds := byCat[record.CategoryMeds]
	encounters := byCat[record.CategoryEncounters]

	var bullets []string
	if e := latestWith(vitals, "blood_pressure"); e != nil {
		bp, _ := e.String("blood_pressure")
		bullets = append(bullets, fmt.Sprintf("Latest BP: %s", bp))
	}
	if e := latestWith(vitals, "bmi"); e != nil {
		v, _ := e.Float("bmi")
		bullets = append(bullets, fmt.Sprintf("Latest BMI: %.1f", v))
	}
	if e := latestWith(labs, "a1c"); e != nil {
		v, _ := e.Float("a1c")
		bullets = append(bullets, fmt.Sprintf("Latest A1C: %.1f%%", v))
	}
	if e := latestWith(labs, "total_cholesterol"); e != nil {
		v, _ := e.Float("total_cholesterol")
		bullets = append(bullets, fmt.Sprintf("Latest Total Cholesterol: %.0f mg/dL", v))
	}
	if names := medicationNames(meds); len(names) > 0 {
		if len(names) > 5 {
			names = names[:5]
		}
		bullets = append(bullets, fmt.Sprintf("Current medications: %s", strings.Join(names, ", ")))
	}
	if len(encounters) > 0 {
		bullets = append(bullets, fmt.Sprintf("Total encounters on file: %d", len(encounters)))
	}
	if high := countHighSeverity(anomalies); high > 0 {
		bullets = append(bullets, fmt.Sprintf("ALERT: %d high-severity anomaly/anomalies detected", high))
	}

	clinician := "No significant clinical findings."
	if len(bullets) > 0 {
		for i, b := range bullets {
			bullets[i] = "• " + b
		}
		clinician = strings.Join(bullets, "\n")
	}

	var parts []string
	if len(vitals) > 0 {
		parts = append(parts, "Your vital signs have been recorded from your hospital visits.")
	}
	if len(labs) > 0 {
		parts = append(parts, "Lab results including blood sugar and cholesterol tests are on file.")
	}
	if len(meds) > 0 {
		parts = append(parts, fmt.Sprintf("Your medication history shows %d medication entries.", len(meds)))
	}
	if len(encounters) > 0 {
		parts = append(parts, fmt.Sprintf("We have records of %d healthcare visits.", len(encounters)))
	}
	if len(anomalies) > 0 {
		parts = append(parts, fmt.Sprintf("Note: %d item(s) were flagged for review by your healthcare provider.", len(anomalies)))
	}

	patientText := "No medical records have been analyzed yet."
	if len(parts) > 0 {
		patientText = strings.Join(parts, " ")
	}

	return &Draft{ClinicianSummary: clinician, PatientSummary: patientText}, nil
}

// medicationNames returns the distinct medication names, sorted for
// deterministic output.
func medicationNames(meds []*record.Entry) []string {
	seen := make(map[string]bool)
	for _, e := range meds {
		name, ok := e.String("medication")
		if !ok {
			name, ok = e.String("name")
		}
		if !ok || name == "" {
			continue
		}
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func countHighSeverity(anomalies []anomaly.Anomaly) int {
	n := 0
	for _, a := range anomalies {
		if a.Severity == anomaly.SeverityHigh {
			n++
		}
	}
	return n
}
