package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
)

// RegisterCustomer registers the routes a signed-in user uses on their own
// data: the profile row and their reservations.  Every route requires a
// valid JWT; profile routes with an id must name the caller.
func RegisterCustomer(e *echo.Echo, p *handler.ProfileHandler, r *handler.ReservationHandler, jwtSecret string) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	g.GET("/profiles/:id", p.Get, middleware.RequireSelf("id"))
	g.POST("/profiles", p.Create)
	g.PATCH("/profiles/:id", p.Update, middleware.RequireSelf("id"))

	g.GET("/reservations", r.List)
	g.POST("/reservations", r.Create)
	g.PATCH("/reservations/:id", r.UpdateStatus)
}
