package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/URMC/urHL7/internal/platform/auth"
)

// Audit logs who touched the message API. Message bodies carry PHI, so
// every /api/v1 call gets an access line after the handler has run.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !strings.HasPrefix(req.URL.Path, "/api/v1/") {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			ctx := req.Context()
			logger.Info().
				Str("type", "audit").
				Str("request_id", requestIDOf(c)).
				Str("subject", auth.SubjectFromContext(ctx)).
				Strs("roles", auth.RolesFromContext(ctx)).
				Str("action", actionOf(req.Method)).
				Str("route", c.Path()).
				Str("message_id", c.Param("id")).
				Str("remote_ip", c.RealIP()).
				Int("status", status).
				Msg("hl7_access")

			return err
		}
	}
}

func actionOf(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read"
	case http.MethodPost:
		return "submit"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}
