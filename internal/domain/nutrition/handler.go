package nutrition

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/medassist/medassist/internal/domain/identity"
	"github.com/medassist/medassist/internal/platform/auth"
)

type Handler struct {
	svc   *Service
	users *identity.Service
}

func NewHandler(svc *Service, users *identity.Service) *Handler {
	return &Handler{svc: svc, users: users}
}

// RegisterRoutes mounts the tracking endpoints. The estimator is public.
func (h *Handler) RegisterRoutes(e *echo.Group) {
	e.POST("/nutrition/estimate", h.Estimate)

	authed := e.Group("/nutrition", auth.RequireAuth(), identity.RequireUser(h.users))
	authed.POST("/meals", h.LogMeal)
	authed.GET("/meals", h.TodayMeals)
	authed.GET("/summary", h.Summary)
	authed.POST("/water", h.LogWater)
	authed.GET("/hydration/history", h.HydrationHistory)
	authed.GET("/protein/history", h.ProteinHistory)
}

func storeError(err error) error {
	return echo.NewHTTPError(http.StatusServiceUnavailable, "nutrition store unavailable").SetInternal(err)
}

func owner(c echo.Context) (*identity.User, error) {
	u, ok := identity.UserFromContext(c.Request().Context())
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, identity.ErrUnauthenticated.Error())
	}
	return u, nil
}

func (h *Handler) LogMeal(c echo.Context) error {
	u, err := owner(c)
	if err != nil {
		return err
	}
	var in MealInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	m, err := h.svc.LogMeal(c.Request().Context(), u.ID, in)
	if errors.Is(err, ErrInvalidMeal) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) TodayMeals(c echo.Context) error {
	u, err := owner(c)
	if err != nil {
		return err
	}
	meals, err := h.svc.TodayMeals(c.Request().Context(), u.ID)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, meals)
}

func (h *Handler) Summary(c echo.Context) error {
	u, err := owner(c)
	if err != nil {
		return err
	}
	sum, err := h.svc.Summary(c.Request().Context(), u.ID)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, sum)
}

type waterRequest struct {
	AmountML int `json:"amount_ml"`
}

func (h *Handler) LogWater(c echo.Context) error {
	u, err := owner(c)
	if err != nil {
		return err
	}
	var req waterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	w, err := h.svc.LogWater(c.Request().Context(), u.ID, req.AmountML)
	if errors.Is(err, ErrInvalidAmount) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":       "Water logged",
		"current_total": w.AmountML,
	})
}

func (h *Handler) HydrationHistory(c echo.Context) error {
	u, err := owner(c)
	if err != nil {
		return err
	}
	days, err := h.svc.HydrationHistory(c.Request().Context(), u.ID)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, days)
}

func (h *Handler) ProteinHistory(c echo.Context) error {
	u, err := owner(c)
	if err != nil {
		return err
	}
	days, err := h.svc.ProteinHistory(c.Request().Context(), u.ID)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, days)
}

type estimateRequest struct {
	Query string `json:"query"`
}

func (h *Handler) Estimate(c echo.Context) error {
	var req estimateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.JSON(http.StatusOK, EstimateFood(req.Query))
}
