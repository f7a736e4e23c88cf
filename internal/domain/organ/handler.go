package organ

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/organlink/organlink/internal/domain/compat"
	"github.com/organlink/organlink/internal/domain/registry"
	"github.com/organlink/organlink/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/organs", h.RegisterOrgan)
	api.GET("/organs", h.ListOrgans)
	api.GET("/organs/:id", h.GetOrgan)
}

type registerOrganRequest struct {
	DonorID   uuid.UUID        `json:"donor_id"`
	OrganType compat.OrganType `json:"organ_type"`
}

func (h *Handler) RegisterOrgan(c echo.Context) error {
	var req registerOrganRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DonorID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "donor_id is required")
	}

	rec, err := h.svc.RegisterAvailable(c.Request().Context(), req.DonorID, req.OrganType)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "donor not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) ListOrgans(c echo.Context) error {
	ctx := c.Request().Context()

	var (
		recs []*Record
		err  error
	)
	switch {
	case c.QueryParam("donor_id") != "":
		donorID, perr := uuid.Parse(c.QueryParam("donor_id"))
		if perr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid donor_id")
		}
		recs, err = h.svc.ListByDonor(ctx, donorID)
	default:
		status := Status(c.QueryParam("status"))
		if status == "" {
			status = StatusAvailable
		}
		recs, err = h.svc.ListByStatus(ctx, status)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p := pagination.FromContext(c)
	return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Page(recs, p), len(recs), p.Limit, p.Offset))
}

func (h *Handler) GetOrgan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "organ record not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, rec)
}
