package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/logger"
)

// RequestID keeps a caller-supplied X-Request-ID or assigns a new UUID,
// and echoes it on the response.
func RequestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(logger.RequestIDKey)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			c.Request().Header.Set(logger.RequestIDKey, id)
		}
		c.Response().Header().Set(logger.RequestIDKey, id)
		c.Set(logger.RequestIDKey, id)
		return next(c)
	}
}
