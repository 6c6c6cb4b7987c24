package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/medassist/medassist/internal/platform/auth"
	"github.com/rs/zerolog"
)

// Logger writes one line per request. Bodies are never logged: requests and
// responses on the analysis routes carry PHI.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)
			if err != nil {
				// Let echo write the error response first so the status is final.
				c.Error(err)
			}

			evt := logger.Info()
			if status := c.Response().Status; status >= 500 {
				evt = logger.Error().Err(err)
			} else if status >= 400 {
				evt = logger.Warn()
			}

			rid, _ := c.Get(RequestIDKey).(string)
			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("subject", auth.UserIDFromContext(c.Request().Context())).
				Int("status", c.Response().Status).
				Int64("bytes_out", c.Response().Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return nil
		}
	}
}
