package anomaly

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medagg/medagg/internal/domain/patient"
	"github.com/medagg/medagg/internal/domain/record"
)

type Handler struct {
	detector *Detector
	records  *record.Service
	patients *patient.Service
}

func NewHandler(detector *Detector, records *record.Service, patients *patient.Service) *Handler {
	return &Handler{detector: detector, records: records, patients: patients}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/anomalies", h.List)
}

// List recomputes the anomaly report over the patient's current entries.
// Nothing is cached; a re-upload immediately changes the report.
func (h *Handler) List(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	if _, err := h.patients.Get(ctx, id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	entries, err := h.records.Records(ctx, id, nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	anomalies := h.detector.Detect(entries)
	if anomalies == nil {
		anomalies = []Anomaly{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"patient_id": id,
		"anomalies":  anomalies,
	})
}
