package record

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medagg/medagg/internal/domain/patient"
)

type mockPatientRepo struct {
	byID map[uuid.UUID]*patient.Patient
}

func (m *mockPatientRepo) Create(_ context.Context, p *patient.Patient) error {
	m.byID[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

func (m *mockPatientRepo) GetByName(_ context.Context, name string) (*patient.Patient, error) {
	for _, p := range m.byID {
		if patient.NormalizeName(p.Name) == patient.NormalizeName(name) {
			return p, nil
		}
	}
	return nil, patient.ErrNotFound
}

func (m *mockPatientRepo) UpdateDateOfBirth(_ context.Context, id uuid.UUID, dob time.Time) error {
	p, ok := m.byID[id]
	if !ok {
		return patient.ErrNotFound
	}
	p.DateOfBirth = &dob
	return nil
}

func newTestHandler() (*Handler, *mockEntryRepo, *mockPatientRepo, *echo.Echo) {
	entries := &mockEntryRepo{}
	patients := &mockPatientRepo{byID: map[uuid.UUID]*patient.Patient{}}
	h := NewHandler(NewService(entries, passRunner{}), patient.NewService(patients))
	return h, entries, patients, echo.New()
}

func TestHandler_Upload(t *testing.T) {
	h, entries, patients, e := newTestHandler()
	body := `{
		"patient_name": "Jane Doe",
		"date_of_birth": "1980-06-15",
		"document": {
			"hospital": "General",
			"patient_id": "P-001",
			"records": {
				"vitals": {"entries": [{"recorded_date": "2024-01-01", "bmi": 25.0}]},
				"labs": {"entries": [{"test_date": "2024-01-02", "a1c": 6.0}]}
			}
		}
	}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Upload(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Ingested != 2 {
		t.Fatalf("ingested %d, want 2", resp.Ingested)
	}
	if len(entries.entries) != 2 {
		t.Fatalf("persisted %d entries, want 2", len(entries.entries))
	}
	if len(patients.byID) != 1 {
		t.Fatalf("registered %d patients, want 1", len(patients.byID))
	}
}

func TestHandler_Upload_UnknownCategory(t *testing.T) {
	h, entries, _, e := newTestHandler()
	body := `{
		"patient_name": "Jane Doe",
		"document": {
			"hospital": "General",
			"patient_id": "P-001",
			"records": {"imaging": {"entries": [{"scan": "mri"}]}}
		}
	}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Upload(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
	if len(entries.entries) != 0 {
		t.Fatal("rejected upload persisted entries")
	}
}

func TestHandler_Upload_MissingFields(t *testing.T) {
	h, _, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"patient_name":""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Upload(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_ListRecords(t *testing.T) {
	h, entries, patients, e := newTestHandler()
	p := &patient.Patient{ID: uuid.New(), Name: "Jane Doe"}
	patients.byID[p.ID] = p
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries.entries = []*Entry{
		{ID: uuid.New(), PatientID: p.ID, Hospital: "General", Category: CategoryVitals, Date: &d,
			Fields: map[string]interface{}{"bmi": 25.0}},
		{ID: uuid.New(), PatientID: p.ID, Hospital: "General", Category: CategoryLabs, Date: &d,
			Fields: map[string]interface{}{"a1c": 6.0}},
	}

	req := httptest.NewRequest(http.MethodGet, "/?category=vitals", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())

	if err := h.ListRecords(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp recordsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].Category != CategoryVitals {
		t.Fatalf("category filter not applied: %+v", resp.Entries)
	}
}

func TestHandler_ListRecords_UnknownPatient(t *testing.T) {
	h, _, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.ListRecords(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_ListRecords_UnknownCategory(t *testing.T) {
	h, _, patients, e := newTestHandler()
	p := &patient.Patient{ID: uuid.New(), Name: "Jane Doe"}
	patients.byID[p.ID] = p

	req := httptest.NewRequest(http.MethodGet, "/?category=imaging", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())

	err := h.ListRecords(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
