// Package router registers the HTTP routes of the API on an echo
// instance.  Each Register function owns one group of routes and the
// middleware that guards it.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/metrics"
	"github.com/iliyamo/table-reservation/internal/middleware"
)

// RegisterRoutes registers the unauthenticated operational endpoints:
// the health check and, when m is set, the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, db *sql.DB, m *metrics.Metrics) {
	e.GET("/healthz", handler.Health(db))
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}

// RegisterAuth registers the auth routes.  limit guards the credential
// endpoints (sign-up, sign-in, refresh); it may be nil.  The current-user
// routes require a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	if limit != nil {
		g.Use(limit)
	}
	g.POST("/signup", a.SignUp)
	g.POST("/token", a.Token)
	g.POST("/refresh", a.Refresh)
	// Logout accepts either a refresh token in the body or a bearer token,
	// so it is not behind JWTAuth.
	g.POST("/logout", a.Logout)

	me := e.Group("/v1/auth/user", middleware.JWTAuth(jwtSecret))
	me.GET("", a.Me)
	me.PUT("", a.UpdateUser)
}

// RegisterPublic registers the catalog routes.  cache, when set, serves
// repeated reads from Redis.
func RegisterPublic(e *echo.Echo, r *handler.RestaurantHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/restaurants")
	if cache != nil {
		g.Use(cache)
	}
	g.GET("", r.List)
	g.GET("/:id", r.Get)
}
