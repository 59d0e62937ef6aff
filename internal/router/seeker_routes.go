package router

import (
	"github.com/labstack/echo/v4"

	"github.com/siaa/storage-rental/internal/handler"
	"github.com/siaa/storage-rental/internal/middleware"
	"github.com/siaa/storage-rental/internal/model"
)

// RegisterSeeker registers SEEKER-scoped endpoints under /v1.  All routes
// require a valid JWT and the SEEKER role; /seeker/:id routes additionally
// require :id to be the caller, which the services enforce.
func RegisterSeeker(e *echo.Echo, b *handler.BookingHandler, d *handler.DashboardHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(string(model.RoleSeeker)),
	)

	// ---- Bookings ----
	g.POST("/bookings", b.Create)

	// ---- Reviews ----
	g.POST("/bookings/:id/review", b.SubmitReview)
	g.PUT("/reviews/:id", b.UpdateReview)
	g.DELETE("/reviews/:id", b.DeleteReview)

	// ---- Dashboard ----
	g.GET("/seeker/:id/bookings", d.SeekerBookings)
	g.GET("/seeker/:id/statistics", d.SeekerStatistics)
	g.GET("/seeker/:id/reviews", d.SeekerReviews)
}
