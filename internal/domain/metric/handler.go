package metric

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medagg/medagg/internal/domain/patient"
	"github.com/medagg/medagg/internal/domain/record"
)

type Handler struct {
	records  *record.Service
	patients *patient.Service
}

func NewHandler(records *record.Service, patients *patient.Service) *Handler {
	return &Handler{records: records, patients: patients}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/metrics", h.AllSeries)
	api.GET("/patients/:id/metrics/:metric", h.Series)
}

// AllSeries returns every supported metric series for the patient, keyed by
// metric name. This is the chart-data payload for record views.
func (h *Handler) AllSeries(c echo.Context) error {
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
	return c.JSON(http.StatusOK, map[string]interface{}{
		"patient_id": id,
		"metrics":    ExtractAll(entries),
	})
}

func (h *Handler) Series(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	name, ok := Supported(c.Param("metric"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown metric "+c.Param("metric"))
	}
	ctx := c.Request().Context()
	if _, err := h.patients.Get(ctx, id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	entries, err := h.records.Records(ctx, id, nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	points := Extract(entries, name)
	if points == nil {
		points = []Point{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"patient_id": id,
		"metric":     name,
		"points":     points,
	})
}
