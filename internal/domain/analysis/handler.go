package analysis

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/medassist/medassist/internal/domain/identity"
	"github.com/medassist/medassist/internal/platform/auth"
	"github.com/medassist/medassist/internal/platform/hipaa"
	"github.com/medassist/medassist/internal/platform/middleware"
	"github.com/medassist/medassist/pkg/pagination"
)

type Handler struct {
	svc         *Service
	users       *identity.Service
	uploadLimit string
	upload      []echo.MiddlewareFunc
}

// NewHandler builds the analysis handler. upload runs after the body limit
// on both analyze routes.
func NewHandler(svc *Service, users *identity.Service, uploadLimit string, upload ...echo.MiddlewareFunc) *Handler {
	return &Handler{svc: svc, users: users, uploadLimit: uploadLimit, upload: upload}
}

// RegisterRoutes mounts the analysis endpoints. Report analysis accepts
// guests; everything else needs a registered user.
func (h *Handler) RegisterRoutes(e *echo.Group) {
	guest := append([]echo.MiddlewareFunc{middleware.BodyLimit(h.uploadLimit), identity.OptionalUser(h.users)}, h.upload...)
	e.POST("/analyze-report", h.AnalyzeReport, guest...)

	authed := e.Group("", auth.RequireAuth(), identity.RequireUser(h.users))
	xray := append([]echo.MiddlewareFunc{middleware.BodyLimit(h.uploadLimit)}, h.upload...)
	authed.POST("/analyze-xray", h.AnalyzeXray, xray...)
	authed.GET("/reports/history", h.History)
	authed.GET("/reports/:id", h.GetReport)
	authed.GET("/reports/:id/upload", h.GetUpload)
	authed.DELETE("/reports/:id", h.DeleteReport)
	authed.GET("/analytics/trends", h.Trends)
	authed.GET("/nutrition/daily-plan", h.DailyPlan)
}

// httpError maps store and vault failures onto status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Report not found")
	case errors.Is(err, ErrInvalidUpload):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid file type. Please upload an image.")
	case errors.Is(err, hipaa.ErrCrypto):
		return echo.NewHTTPError(http.StatusConflict, "data inaccessible").SetInternal(err)
	case errors.Is(err, ErrStoreUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "record store unavailable").SetInternal(err)
	default:
		return err
	}
}

func currentUser(c echo.Context) (*identity.User, error) {
	u, ok := identity.UserFromContext(c.Request().Context())
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, identity.ErrUnauthenticated.Error())
	}
	return u, nil
}

// readUpload returns the multipart "file" field and its declared content type.
func readUpload(c echo.Context) ([]byte, string, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return nil, "", he
		}
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
	}
	return data, fh.Header.Get(echo.HeaderContentType), nil
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) AnalyzeReport(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	data, _, err := readUpload(c)
	if err != nil {
		return err
	}
	res, err := h.svc.AnalyzeReport(c.Request().Context(), u.ID, data, c.RealIP())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) AnalyzeXray(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	data, contentType, err := readUpload(c)
	if err != nil {
		return err
	}
	res, err := h.svc.AnalyzeXray(c.Request().Context(), u.ID, data, contentType, c.RealIP())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) History(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.History(c.Request().Context(), u.ID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	pagination.SetTotal(c, total)
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetReport(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	res, err := h.svc.Report(c.Request().Context(), u.ID, id, c.RealIP())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// GetUpload serves the archived upload behind an analysis. The response is
// the decrypted original, so it is never cached.
func (h *Handler) GetUpload(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	data, err := h.svc.Upload(c.Request().Context(), u.ID, id, c.RealIP())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Upload not found")
		}
		return httpError(err)
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, http.DetectContentType(data), data)
}

func (h *Handler) DeleteReport(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), u.ID, id, c.RealIP()); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Report deleted successfully"})
}

func (h *Handler) Trends(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	points, err := h.svc.Trends(c.Request().Context(), u.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, points)
}

func (h *Handler) DailyPlan(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	plan, err := h.svc.DailyPlan(c.Request().Context(), u.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, plan)
}
