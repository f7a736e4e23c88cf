package matching

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/organlink/organlink/internal/domain/compat"
	"github.com/organlink/organlink/internal/domain/organ"
	"github.com/organlink/organlink/internal/domain/registry"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/donors/:id/matches", h.FindMatches)
	api.POST("/organs/:id/allocate", h.Allocate)
	api.POST("/organs/:id/transplant", h.CompleteTransplant)
	api.POST("/organs/:id/waste", h.MarkWasted)
}

func (h *Handler) FindMatches(c echo.Context) error {
	donorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid donor id")
	}

	var organType *compat.OrganType
	if raw := c.QueryParam("organ"); raw != "" {
		o := compat.OrganType(raw)
		organType = &o
	}
	limit := 0
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	res, err := h.svc.FindTopMatches(c.Request().Context(), donorID, organType, limit)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, res)
}

type allocateRequest struct {
	RecipientID uuid.UUID `json:"recipient_id"`
}

func (h *Handler) Allocate(c echo.Context) error {
	organID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid organ record id")
	}
	var req allocateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.RecipientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "recipient_id is required")
	}

	rec, err := h.svc.Allocate(c.Request().Context(), organID, req.RecipientID)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

type transplantRequest struct {
	Notes *string `json:"notes"`
}

func (h *Handler) CompleteTransplant(c echo.Context) error {
	organID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid organ record id")
	}
	var req transplantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	rec, err := h.svc.CompleteTransplant(c.Request().Context(), organID, req.Notes)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

type wasteRequest struct {
	Reason string `json:"reason"`
	Kind   string `json:"kind"`
}

func (h *Handler) MarkWasted(c echo.Context) error {
	organID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid organ record id")
	}
	var req wasteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Kind == "" {
		req.Kind = string(organ.StatusWasted)
	}

	rec, err := h.svc.MarkWasted(c.Request().Context(), organID, req.Reason, organ.WasteKind(req.Kind))
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// mapError translates the service error taxonomy onto HTTP statuses.
func (h *Handler) mapError(err error) error {
	var (
		ve *ValidationError
		ie *IncompatibilityError
		ce *ConflictError
		se *InvalidStateError
		te *DependencyTimeout
	)
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Msg)
	case errors.As(err, &ie):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]string{
			"reason":  ie.Reason,
			"message": ie.Msg,
		})
	case errors.As(err, &ce):
		return echo.NewHTTPError(http.StatusConflict, ce.Msg)
	case errors.As(err, &se):
		return echo.NewHTTPError(http.StatusConflict, se.Msg)
	case errors.As(err, &te):
		return echo.NewHTTPError(http.StatusGatewayTimeout, te.Error())
	case errors.Is(err, organ.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "organ record not found")
	case errors.Is(err, registry.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "donor or recipient not found")
	}
	return err
}
