package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
)

// RegisterOwnerReservations registers the routes restaurant owners use to
// review and confirm bookings.  They require a JWT carrying the owner or
// admin role; ownership of the restaurant is checked by the handler.
func RegisterOwnerReservations(e *echo.Echo, h *handler.OwnerReservationHandler, jwtSecret string) {
	g := e.Group(
		"/v1/owner",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOwner, model.RoleAdmin),
	)
	g.GET("/restaurants/:id/reservations", h.List)
	g.POST("/reservations/:id/confirm", h.Confirm)
}
