package anomaly

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medagg/medagg/internal/domain/patient"
	"github.com/medagg/medagg/internal/domain/record"
)

type stubEntryRepo struct {
	entries []*record.Entry
}

func (s *stubEntryRepo) InsertBatch(_ context.Context, entries []*record.Entry) error {
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *stubEntryRepo) ListByPatient(_ context.Context, patientID uuid.UUID, _ []record.Category) ([]*record.Entry, error) {
	var out []*record.Entry
	for _, e := range s.entries {
		if e.PatientID == patientID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubEntryRepo) DeleteByPatient(_ context.Context, patientID uuid.UUID) error {
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.PatientID != patientID {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return nil
}

type stubPatientRepo struct {
	byID map[uuid.UUID]*patient.Patient
}

func (s *stubPatientRepo) Create(_ context.Context, p *patient.Patient) error {
	s.byID[p.ID] = p
	return nil
}

func (s *stubPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

func (s *stubPatientRepo) GetByName(_ context.Context, name string) (*patient.Patient, error) {
	for _, p := range s.byID {
		if patient.NormalizeName(p.Name) == patient.NormalizeName(name) {
			return p, nil
		}
	}
	return nil, patient.ErrNotFound
}

func (s *stubPatientRepo) UpdateDateOfBirth(_ context.Context, id uuid.UUID, dob time.Time) error {
	p, ok := s.byID[id]
	if !ok {
		return patient.ErrNotFound
	}
	p.DateOfBirth = &dob
	return nil
}

type noTxRunner struct{}

func (noTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func TestHandler_List(t *testing.T) {
	entries := &stubEntryRepo{}
	patients := &stubPatientRepo{byID: map[uuid.UUID]*patient.Patient{}}
	h := NewHandler(NewDetector(DefaultConfig()), record.NewService(entries, noTxRunner{}), patient.NewService(patients))

	p := &patient.Patient{ID: uuid.New(), Name: "Jane Doe"}
	patients.byID[p.ID] = p
	d := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	entries.entries = []*record.Entry{
		{ID: uuid.New(), PatientID: p.ID, Hospital: "General", Category: record.CategoryVitals, Date: &d,
			Fields: map[string]interface{}{"bmi": 44.0}},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Anomalies []Anomaly `json:"anomalies"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Anomalies) != 1 || resp.Anomalies[0].Kind != KindOutlier {
		t.Fatalf("expected one outlier, got %+v", resp.Anomalies)
	}
}

func TestHandler_List_NoAnomalies(t *testing.T) {
	entries := &stubEntryRepo{}
	patients := &stubPatientRepo{byID: map[uuid.UUID]*patient.Patient{}}
	h := NewHandler(NewDetector(DefaultConfig()), record.NewService(entries, noTxRunner{}), patient.NewService(patients))

	p := &patient.Patient{ID: uuid.New(), Name: "Jane Doe"}
	patients.byID[p.ID] = p

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Anomalies []Anomaly `json:"anomalies"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Anomalies == nil || len(resp.Anomalies) != 0 {
		t.Fatalf("expected empty array, got %+v", resp.Anomalies)
	}
}

func TestHandler_List_UnknownPatient(t *testing.T) {
	entries := &stubEntryRepo{}
	patients := &stubPatientRepo{byID: map[uuid.UUID]*patient.Patient{}}
	h := NewHandler(NewDetector(DefaultConfig()), record.NewService(entries, noTxRunner{}), patient.NewService(patients))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.List(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}
