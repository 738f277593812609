package sharing

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medagg/medagg/internal/domain/patient"
	"github.com/medagg/medagg/internal/domain/record"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients/:id/tokens", h.CreateToken)
	api.GET("/patients/:id/tokens", h.ListTokens)
	api.POST("/tokens/:id/revoke", h.RevokeToken)
	api.POST("/provider/access", h.ProviderAccess)
}

type createTokenRequest struct {
	Scope      []record.Category `json:"scope"`
	TTLSeconds int64             `json:"ttl_seconds"`
}

type createTokenResponse struct {
	*Token
	// Value is exposed exactly once, at issuance.
	Value string `json:"value"`
}

func (h *Handler) CreateToken(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req createTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	t, err := h.svc.Create(c.Request().Context(), patientID, req.Scope, time.Duration(req.TTLSeconds)*time.Second)
	switch {
	case errors.Is(err, ErrInvalidScope) || errors.Is(err, ErrInvalidTTL):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, patient.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, createTokenResponse{Token: t, Value: t.Value})
}

func (h *Handler) ListTokens(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	views, err := h.svc.ListForPatient(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if views == nil {
		views = []TokenView{}
	}
	return c.JSON(http.StatusOK, views)
}

func (h *Handler) RevokeToken(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, err := h.svc.Revoke(c.Request().Context(), id)
	if errors.Is(err, ErrTokenNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "token not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, TokenView{Token: t, Status: StatusRevoked})
}

type providerAccessRequest struct {
	Token       string `json:"token"`
	PatientName string `json:"patient_name"`
	DateOfBirth string `json:"date_of_birth"`
}

// ProviderAccess is the token-holder path: validate the token, verify the
// claimed patient identity, release the scoped data and write the audit row,
// all or nothing.
func (h *Handler) ProviderAccess(c echo.Context) error {
	var req providerAccessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}
	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date_of_birth must be YYYY-MM-DD")
	}

	access, err := h.svc.Authorize(c.Request().Context(), AuthorizeRequest{
		TokenValue:  req.Token,
		PatientName: req.PatientName,
		DateOfBirth: dob,
		SourceIP:    c.RealIP(),
	})
	switch {
	case errors.Is(err, ErrTokenNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "token not found")
	case errors.Is(err, ErrTokenExpired):
		return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
	case errors.Is(err, ErrTokenRevoked):
		return echo.NewHTTPError(http.StatusUnauthorized, "token revoked")
	case errors.Is(err, patient.ErrIdentityMismatch):
		return echo.NewHTTPError(http.StatusForbidden, "patient identity does not match")
	case errors.Is(err, patient.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, access)
}
