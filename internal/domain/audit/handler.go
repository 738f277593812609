package audit

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medagg/medagg/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/access-log", h.Trail)
}

// Trail returns the patient's access history, newest first, paginated.
func (h *Handler) Trail(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	logs, err := h.svc.Trail(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	p := pagination.FromContext(c)
	total := len(logs)
	start := p.Offset
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	page := logs[start:end]
	if page == nil {
		page = []*AccessLog{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(page, total, p.Limit, p.Offset))
}
