package expiry

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	monitor *Monitor
}

func NewHandler(monitor *Monitor) *Handler {
	return &Handler{monitor: monitor}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/organs/expiring", h.ListExpiring)
}

func (h *Handler) ListExpiring(c echo.Context) error {
	var hours float64
	if err := echo.QueryParamsBinder(c).Float64("lookahead_hours", &hours).BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid lookahead_hours")
	}
	if hours < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "lookahead_hours must be positive")
	}

	alerts, err := h.monitor.Scan(c.Request().Context(), time.Duration(hours*float64(time.Hour)))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}
