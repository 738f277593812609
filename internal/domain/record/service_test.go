package record

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type mockEntryRepo struct {
	entries   []*Entry
	insertErr error
}

func (m *mockEntryRepo) InsertBatch(_ context.Context, entries []*Entry) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *mockEntryRepo) ListByPatient(_ context.Context, patientID uuid.UUID, categories []Category) ([]*Entry, error) {
	want := map[Category]bool{}
	for _, c := range categories {
		want[c] = true
	}
	var out []*Entry
	for _, e := range m.entries {
		if e.PatientID != patientID {
			continue
		}
		if categories != nil && !want[e.Category] {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *mockEntryRepo) DeleteByPatient(_ context.Context, patientID uuid.UUID) error {
	var kept []*Entry
	for _, e := range m.entries {
		if e.PatientID != patientID {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	return nil
}

type passRunner struct{}

func (passRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func sampleDoc() *SourceDocument {
	return doc("General", map[string]CategoryBucket{
		"vitals": {Entries: []map[string]interface{}{{"recorded_date": "2024-01-01", "bmi": 25.0}}},
		"labs":   {Entries: []map[string]interface{}{{"test_date": "2024-01-02", "a1c": 6.0}}},
	})
}

func TestIngestAssignsIdentityAndPersists(t *testing.T) {
	repo := &mockEntryRepo{}
	svc := NewService(repo, passRunner{})
	patientID := uuid.New()

	entries, err := svc.Ingest(context.Background(), patientID, sampleDoc(), false)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.ID == uuid.Nil {
			t.Fatal("entry id not assigned")
		}
		if e.PatientID != patientID {
			t.Fatalf("entry patient id %s, want %s", e.PatientID, patientID)
		}
	}
	if len(repo.entries) != 2 {
		t.Fatalf("expected 2 persisted entries, got %d", len(repo.entries))
	}
}

func TestIngestValidationErrorPersistsNothing(t *testing.T) {
	repo := &mockEntryRepo{}
	svc := NewService(repo, passRunner{})

	bad := doc("General", map[string]CategoryBucket{
		"vitals":  {Entries: []map[string]interface{}{{"bmi": 25.0}}},
		"imaging": {Entries: []map[string]interface{}{{"scan": "mri"}}},
	})
	_, err := svc.Ingest(context.Background(), uuid.New(), bad, false)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(repo.entries) != 0 {
		t.Fatalf("rejected document persisted %d entries", len(repo.entries))
	}
}

func TestIngestReplaceSupersedesPriorEntries(t *testing.T) {
	repo := &mockEntryRepo{}
	svc := NewService(repo, passRunner{})
	patientID := uuid.New()
	other := uuid.New()

	if _, err := svc.Ingest(context.Background(), patientID, sampleDoc(), false); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if _, err := svc.Ingest(context.Background(), other, sampleDoc(), false); err != nil {
		t.Fatalf("other patient ingest: %v", err)
	}

	replacement := doc("St. Mary", map[string]CategoryBucket{
		"labs": {Entries: []map[string]interface{}{{"test_date": "2024-02-01", "a1c": 6.5}}},
	})
	if _, err := svc.Ingest(context.Background(), patientID, replacement, true); err != nil {
		t.Fatalf("replace ingest: %v", err)
	}

	mine, err := svc.Records(context.Background(), patientID, nil)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(mine) != 1 || mine[0].Hospital != "St. Mary" {
		t.Fatalf("replace did not supersede: %d entries", len(mine))
	}

	theirs, err := svc.Records(context.Background(), other, nil)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(theirs) != 2 {
		t.Fatalf("replace touched another patient: %d entries", len(theirs))
	}
}

func TestIngestWithoutReplaceUnionsAcrossHospitals(t *testing.T) {
	repo := &mockEntryRepo{}
	svc := NewService(repo, passRunner{})
	patientID := uuid.New()

	if _, err := svc.Ingest(context.Background(), patientID, sampleDoc(), false); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second := doc("St. Mary", map[string]CategoryBucket{
		"labs": {Entries: []map[string]interface{}{{"test_date": "2024-01-02", "a1c": 6.1}}},
	})
	if _, err := svc.Ingest(context.Background(), patientID, second, false); err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	all, err := svc.Records(context.Background(), patientID, nil)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected union of 3 entries, got %d", len(all))
	}
}
