package record

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medagg/medagg/internal/domain/patient"
)

type Handler struct {
	svc      *Service
	patients *patient.Service
}

func NewHandler(svc *Service, patients *patient.Service) *Handler {
	return &Handler{svc: svc, patients: patients}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/uploads", h.Upload)
	api.GET("/patients/:id/records", h.ListRecords)
}

type uploadRequest struct {
	PatientName string          `json:"patient_name"`
	DateOfBirth string          `json:"date_of_birth"`
	Replace     bool            `json:"replace"`
	Document    *SourceDocument `json:"document"`
}

type uploadResponse struct {
	PatientID uuid.UUID        `json:"patient_id"`
	Hospital  string           `json:"hospital"`
	Ingested  int              `json:"ingested"`
	ByCat     map[Category]int `json:"by_category"`
}

// Upload ingests one hospital document for a patient, registering the
// patient on first contact. A document that fails validation is rejected
// whole; nothing from it is stored.
func (h *Handler) Upload(c echo.Context) error {
	var req uploadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_name is required")
	}
	if req.Document == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "document is required")
	}

	var dob *time.Time
	if req.DateOfBirth != "" {
		d, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date_of_birth must be YYYY-MM-DD")
		}
		dob = &d
	}

	ctx := c.Request().Context()
	p, err := h.patients.GetOrCreate(ctx, req.PatientName, dob)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	entries, err := h.svc.Ingest(ctx, p.ID, req.Document, req.Replace)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, verr.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	byCat := make(map[Category]int)
	for _, e := range entries {
		byCat[e.Category]++
	}
	return c.JSON(http.StatusCreated, uploadResponse{
		PatientID: p.ID,
		Hospital:  req.Document.Hospital,
		Ingested:  len(entries),
		ByCat:     byCat,
	})
}

type recordsResponse struct {
	PatientID uuid.UUID `json:"patient_id"`
	Entries   []*Entry  `json:"entries"`
}

// ListRecords returns the patient's aggregated entries in canonical order,
// optionally filtered by one or more category query params.
func (h *Handler) ListRecords(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var categories []Category
	for _, raw := range c.QueryParams()["category"] {
		cat, ok := ParseCategory(raw)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown category "+raw)
		}
		categories = append(categories, cat)
	}

	ctx := c.Request().Context()
	if _, err := h.patients.Get(ctx, id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	entries, err := h.svc.Records(ctx, id, categories)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if entries == nil {
		entries = []*Entry{}
	}
	return c.JSON(http.StatusOK, recordsResponse{PatientID: id, Entries: entries})
}
