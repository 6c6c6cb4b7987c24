package identity

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/medassist/medassist/internal/platform/auth"
)

type contextKey struct{}

func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFromContext returns the user attached by RequireUser or OptionalUser.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(contextKey{}).(*User)
	return u, ok && u != nil
}

// RequireUser resolves the verified identity to a registered user and
// rejects everyone else with 401. It must run after auth.RequireAuth.
func RequireUser(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			id, ok := auth.IdentityFromContext(ctx)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, auth.ErrMissingToken.Error())
			}
			u, err := svc.Resolve(ctx, id)
			if err != nil {
				return resolveError(err)
			}
			c.SetRequest(c.Request().WithContext(WithUser(ctx, u)))
			return next(c)
		}
	}
}

// OptionalUser attaches the registered user when there is one and the guest
// sentinel otherwise.
func OptionalUser(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			id, ok := auth.IdentityFromContext(ctx)
			u, err := svc.ResolveOptional(ctx, id, ok)
			if err != nil {
				return resolveError(err)
			}
			c.SetRequest(c.Request().WithContext(WithUser(ctx, u)))
			return next(c)
		}
	}
}

func resolveError(err error) error {
	switch {
	case errors.Is(err, ErrNotRegistered), errors.Is(err, ErrUnauthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	default:
		return echo.NewHTTPError(http.StatusServiceUnavailable, "user store unavailable").SetInternal(err)
	}
}
