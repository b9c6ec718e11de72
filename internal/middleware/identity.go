package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user id, or "" on public routes.
func UserID(c echo.Context) string {
	if s, ok := c.Get(CtxUserID).(string); ok {
		return s
	}
	return ""
}

// RequireSelf rejects requests whose path parameter param names a user
// other than the authenticated one.
func RequireSelf(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id := c.Param(param); id != "" && id != UserID(c) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
