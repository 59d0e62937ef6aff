package router

import (
	"github.com/labstack/echo/v4"

	"github.com/siaa/storage-rental/internal/handler"
	"github.com/siaa/storage-rental/internal/middleware"
	"github.com/siaa/storage-rental/internal/model"
)

// RegisterProvider registers PROVIDER-scoped endpoints under /v1.
// All routes require a valid JWT and the PROVIDER role.
func RegisterProvider(e *echo.Echo, s *handler.SpaceHandler, d *handler.DashboardHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(string(model.RoleProvider)),
	)

	// ---- Spaces ----
	g.POST("/provider/spaces", s.Create)
	g.PUT("/provider/spaces/:id", s.Update)
	g.GET("/provider/:id/spaces", s.ListForProvider)

	// ---- Dashboard ----
	g.GET("/provider/:id/bookings", d.ProviderBookings)
	g.GET("/provider/:id/statistics", d.ProviderStatistics)
	g.GET("/provider/:id/reviews", d.ProviderReviews)
}
