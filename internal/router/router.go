package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/siaa/storage-rental/internal/handler"
	"github.com/siaa/storage-rental/internal/middleware"
	"github.com/siaa/storage-rental/internal/model"
)

// RegisterRoutes registers non-authenticated infrastructure routes.
func RegisterRoutes(e *echo.Echo, store handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(store))
}

// RegisterAuth registers the authentication routes under /v1/auth and the
// account endpoints shared by seekers and providers under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, n *handler.NotificationHandler, b *handler.BookingHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh) // rotates the refresh token
	// logout needs no JWT: a refresh token in the body ends that session,
	// a bearer token alone ends all of them
	g.POST("/logout", a.Logout)

	auth := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(string(model.RoleSeeker), string(model.RoleProvider)),
	)
	auth.GET("/me", a.Me)
	auth.PUT("/me", a.UpdateMe)

	// seeker or provider of the booking; ownership is checked by the service
	auth.GET("/bookings/:id", b.Get)
	auth.PUT("/bookings/:id/status", b.UpdateStatus)
	auth.DELETE("/bookings/:id", b.Cancel)

	auth.GET("/notifications", n.List)
	auth.PUT("/notifications/:id/read", n.MarkRead)
}

// RegisterPublic registers the guest browse endpoints.  Search and space
// detail responses go through their caches; availability and quotes depend
// on live bookings and are never cached.
func RegisterPublic(e *echo.Echo, s *handler.SpaceHandler, searchCache, detailCache echo.MiddlewareFunc) {
	e.GET("/v1/spaces", s.Search, searchCache)
	e.GET("/v1/spaces/:id", s.Get, detailCache)
	e.GET("/v1/spaces/:id/availability", s.Availability)
	e.GET("/v1/spaces/:id/quote", s.Quote)
	e.GET("/v1/spaces/:id/reviews", s.Reviews)
}
