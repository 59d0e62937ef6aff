package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/siaa/storage-rental/internal/model"
	"github.com/siaa/storage-rental/internal/service"
)

// BookingHandler serves booking creation, lookup and status changes plus
// review submission for a booking.
type BookingHandler struct {
	Bookings *service.BookingService
	Reviews  *service.ReviewService
}

func NewBookingHandler(b *service.BookingService, r *service.ReviewService) *BookingHandler {
	return &BookingHandler{Bookings: b, Reviews: r}
}

type createBookingReq struct {
	SeekerID         *uint64 `json:"seeker_id"`
	SpaceID          uint64  `json:"space_id" validate:"required"`
	StartDate        string  `json:"start_date" validate:"required"`
	EndDate          string  `json:"end_date" validate:"required"`
	TotalAmountCents *int64  `json:"total_amount_cents" validate:"omitempty,gte=0"`
}

type statusReq struct {
	SeekerID *uint64 `json:"seeker_id"`
	Status   string  `json:"status" validate:"required"`
}

// reviewReq is checked by the review service, which owns the rating and
// comment bounds.
type reviewReq struct {
	SeekerID *uint64 `json:"seeker_id"`
	Rating   int     `json:"rating"`
	Comment  string  `json:"comment"`
}

// sameAccount reports whether an optional seeker_id in a body names the
// caller.  Bodies naming another account are answered 404.
func sameAccount(actor service.Actor, claimed *uint64) bool {
	return claimed == nil || *claimed == actor.ID
}

func notFoundOrUnauthorized(c echo.Context) error {
	return c.JSON(http.StatusNotFound, echo.Map{"error": "not found or unauthorized"})
}

// Create books a space for the calling seeker.
// POST /v1/bookings
func (h *BookingHandler) Create(c echo.Context) error {
	return withActor(c, func(actor service.Actor) error {
		var req createBookingReq
		if err := bindValid(c, &req); err != nil {
			return badRequest(c, err.Error())
		}
		if !sameAccount(actor, req.SeekerID) {
			return notFoundOrUnauthorized(c)
		}
		start, end, err := parseRange(req.StartDate, req.EndDate)
		if err != nil {
			return badRequest(c, err.Error())
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		b, err := h.Bookings.Create(ctx, service.CreateBookingInput{
			SeekerID:         actor.ID,
			SpaceID:          req.SpaceID,
			StartDate:        start,
			EndDate:          end,
			TotalAmountCents: req.TotalAmountCents,
		})
		if err != nil {
			return respondError(c, err, "create booking failed")
		}
		return c.JSON(http.StatusCreated, b)
	})
}

// Get returns a booking visible to the caller.
// GET /v1/bookings/:id
func (h *BookingHandler) Get(c echo.Context) error {
	return withActor(c, func(actor service.Actor) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		b, err := h.Bookings.Get(ctx, actor, id)
		if err != nil {
			return respondError(c, err, "load booking failed")
		}
		return c.JSON(http.StatusOK, b)
	})
}

// UpdateStatus moves a booking along the status machine.
// PUT /v1/bookings/:id/status
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	return withActor(c, func(actor service.Actor) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		var req statusReq
		if err := bindValid(c, &req); err != nil {
			return badRequest(c, err.Error())
		}
		if !sameAccount(actor, req.SeekerID) {
			return notFoundOrUnauthorized(c)
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		b, err := h.Bookings.Transition(ctx, actor, id, model.BookingStatus(strings.TrimSpace(req.Status)))
		if err != nil {
			return respondError(c, err, "update booking status failed")
		}
		return c.JSON(http.StatusOK, b)
	})
}

// Cancel cancels a booking.
// DELETE /v1/bookings/:id
func (h *BookingHandler) Cancel(c echo.Context) error {
	return withActor(c, func(actor service.Actor) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		b, err := h.Bookings.Cancel(ctx, actor, id)
		if err != nil {
			return respondError(c, err, "cancel booking failed")
		}
		return c.JSON(http.StatusOK, b)
	})
}

// SubmitReview reviews a completed booking.
// POST /v1/bookings/:id/review
func (h *BookingHandler) SubmitReview(c echo.Context) error {
	return withActor(c, func(actor service.Actor) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		var req reviewReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
		if !sameAccount(actor, req.SeekerID) {
			return notFoundOrUnauthorized(c)
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		r, err := h.Reviews.Submit(ctx, actor, id, req.Rating, req.Comment)
		if err != nil {
			return respondError(c, err, "submit review failed")
		}
		return c.JSON(http.StatusCreated, r)
	})
}

// UpdateReview edits the caller's review.
// PUT /v1/reviews/:id
func (h *BookingHandler) UpdateReview(c echo.Context) error {
	return withActor(c, func(actor service.Actor) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		var req reviewReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
		if !sameAccount(actor, req.SeekerID) {
			return notFoundOrUnauthorized(c)
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		r, err := h.Reviews.Update(ctx, actor, id, req.Rating, req.Comment)
		if err != nil {
			return respondError(c, err, "update review failed")
		}
		return c.JSON(http.StatusOK, r)
	})
}

// DeleteReview removes the caller's review.
// DELETE /v1/reviews/:id
func (h *BookingHandler) DeleteReview(c echo.Context) error {
	return withActor(c, func(actor service.Actor) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		if err := h.Reviews.Delete(ctx, actor, id); err != nil {
			return respondError(c, err, "delete review failed")
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "review deleted"})
	})
}
