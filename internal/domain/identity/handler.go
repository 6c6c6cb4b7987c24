package identity

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/medassist/medassist/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the account endpoints. Both need a verified token.
func (h *Handler) RegisterRoutes(e *echo.Group) {
	authed := e.Group("", auth.RequireAuth())
	authed.POST("/auth/register", h.Register)
	authed.GET("/users/me", h.Me, RequireUser(h.svc))
}

func (h *Handler) Register(c echo.Context) error {
	id, _ := auth.IdentityFromContext(c.Request().Context())
	u, created, err := h.svc.Register(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrEmailRequired) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusServiceUnavailable, "user store unavailable").SetInternal(err)
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, u)
}

func (h *Handler) Me(c echo.Context) error {
	u, _ := UserFromContext(c.Request().Context())
	return c.JSON(http.StatusOK, u)
}
