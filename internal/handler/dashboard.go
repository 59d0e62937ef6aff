package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/siaa/storage-rental/internal/model"
	"github.com/siaa/storage-rental/internal/service"
)

// DashboardHandler serves the per-account listings and statistics of the
// seeker and provider dashboards.  Every endpoint is scoped to :id, which
// must be the caller.
type DashboardHandler struct {
	Bookings *service.BookingService
	Reviews  *service.ReviewService
}

func NewDashboardHandler(b *service.BookingService, r *service.ReviewService) *DashboardHandler {
	return &DashboardHandler{Bookings: b, Reviews: r}
}

// scoped runs fn with the caller and the :id path parameter and writes its
// result as JSON.  A nil slice result is written as [].
func scoped[T any](c echo.Context, fallback string, fn func(ctx context.Context, actor service.Actor, id uint64) (T, error)) error {
	return withActor(c, func(actor service.Actor) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		out, err := fn(ctx, actor, id)
		if err != nil {
			return respondError(c, err, fallback)
		}
		return c.JSON(http.StatusOK, out)
	})
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// SeekerBookings: GET /v1/seeker/:id/bookings
func (h *DashboardHandler) SeekerBookings(c echo.Context) error {
	return scoped(c, "list bookings failed", func(ctx context.Context, a service.Actor, id uint64) ([]model.BookingDetail, error) {
		list, err := h.Bookings.ListForSeeker(ctx, a, id)
		return emptyIfNil(list), err
	})
}

// SeekerStatistics: GET /v1/seeker/:id/statistics
func (h *DashboardHandler) SeekerStatistics(c echo.Context) error {
	return scoped(c, "load statistics failed", h.Bookings.SeekerStatistics)
}

// SeekerReviews: GET /v1/seeker/:id/reviews
func (h *DashboardHandler) SeekerReviews(c echo.Context) error {
	return scoped(c, "list reviews failed", func(ctx context.Context, a service.Actor, id uint64) ([]model.ReviewDetail, error) {
		list, err := h.Reviews.ListForSeeker(ctx, a, id)
		return emptyIfNil(list), err
	})
}

// ProviderBookings: GET /v1/provider/:id/bookings
func (h *DashboardHandler) ProviderBookings(c echo.Context) error {
	return scoped(c, "list bookings failed", func(ctx context.Context, a service.Actor, id uint64) ([]model.BookingDetail, error) {
		list, err := h.Bookings.ListForProvider(ctx, a, id)
		return emptyIfNil(list), err
	})
}

// ProviderStatistics: GET /v1/provider/:id/statistics
func (h *DashboardHandler) ProviderStatistics(c echo.Context) error {
	return scoped(c, "load statistics failed", h.Bookings.ProviderStatistics)
}

// ProviderReviews: GET /v1/provider/:id/reviews
func (h *DashboardHandler) ProviderReviews(c echo.Context) error {
	return scoped(c, "list reviews failed", func(ctx context.Context, a service.Actor, id uint64) ([]model.ReviewDetail, error) {
		list, err := h.Reviews.ListForProvider(ctx, a, id)
		return emptyIfNil(list), err
	})
}
