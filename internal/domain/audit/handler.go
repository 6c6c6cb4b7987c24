package audit

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/medassist/medassist/internal/platform/auth"
	"github.com/medassist/medassist/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireAuth(), auth.RequireRole("admin"))
	read.GET("/audit-events", h.ListAuditEvents)
	read.GET("/audit-events/:id", h.GetAuditEvent)
}

func (h *Handler) GetAuditEvent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.GetAuditEvent(c.Request().Context(), id)
	if errors.Is(err, ErrEventNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "audit store unavailable").SetInternal(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListAuditEvents(c echo.Context) error {
	pg := pagination.FromContext(c)

	params := SearchParams{Action: c.QueryParam("action")}
	if v := c.QueryParam("user_id"); v != "" {
		uid, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid user_id")
		}
		params.UserID = &uid
	}

	items, total, err := h.svc.SearchAuditEvents(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "audit store unavailable").SetInternal(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}
