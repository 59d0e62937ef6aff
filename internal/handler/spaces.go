package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/siaa/storage-rental/internal/model"
	"github.com/siaa/storage-rental/internal/pricing"
	"github.com/siaa/storage-rental/internal/service"
)

// SpaceHandler serves the public space endpoints and provider listings.
type SpaceHandler struct {
	Spaces    *service.SpaceService
	Bookings  *service.BookingService
	ReviewSvc *service.ReviewService
}

func NewSpaceHandler(s *service.SpaceService, b *service.BookingService, r *service.ReviewService) *SpaceHandler {
	return &SpaceHandler{Spaces: s, Bookings: b, ReviewSvc: r}
}

type spaceReq struct {
	Title              string  `json:"title" validate:"required,max=255"`
	Description        string  `json:"description" validate:"max=5000"`
	SpaceType          string  `json:"space_type" validate:"required,max=100"`
	SizeSqm            float64 `json:"size_sqm" validate:"gt=0"`
	City               string  `json:"city" validate:"required,max=100"`
	Address            string  `json:"address" validate:"max=255"`
	PricePerDayCents   *int64  `json:"price_per_day_cents" validate:"omitempty,gte=0"`
	PricePerWeekCents  *int64  `json:"price_per_week_cents" validate:"omitempty,gte=0"`
	PricePerMonthCents *int64  `json:"price_per_month_cents" validate:"omitempty,gte=0"`
	IsAvailable        *bool   `json:"is_available"`
	Status             *string `json:"status"`
}

func (r *spaceReq) input() service.SpaceInput {
	in := service.SpaceInput{
		Title:       r.Title,
		Description: r.Description,
		SpaceType:   r.SpaceType,
		SizeSqm:     r.SizeSqm,
		City:        r.City,
		Address:     r.Address,
		Rates: model.Rates{
			PerDayCents:   r.PricePerDayCents,
			PerWeekCents:  r.PricePerWeekCents,
			PerMonthCents: r.PricePerMonthCents,
		},
		IsAvailable: r.IsAvailable,
	}
	if r.Status != nil {
		st := model.SpaceStatus(strings.TrimSpace(*r.Status))
		in.Status = &st
	}
	return in
}

// Search lists bookable spaces.
// GET /v1/spaces?q&space_type&city&min_price&max_price&min_size&max_size&page&page_size
func (h *SpaceHandler) Search(c echo.Context) error {
	q := model.SpaceSearch{
		Term:      c.QueryParam("q"),
		SpaceType: strings.TrimSpace(c.QueryParam("space_type")),
		City:      strings.TrimSpace(c.QueryParam("city")),
	}
	var err error
	if q.MinMonthCents, err = queryInt64(c, "min_price"); err != nil {
		return badRequest(c, err.Error())
	}
	if q.MaxMonthCents, err = queryInt64(c, "max_price"); err != nil {
		return badRequest(c, err.Error())
	}
	if q.MinSizeSqm, err = queryFloat(c, "min_size"); err != nil {
		return badRequest(c, err.Error())
	}
	if q.MaxSizeSqm, err = queryFloat(c, "max_size"); err != nil {
		return badRequest(c, err.Error())
	}
	q.Page, _ = strconv.Atoi(c.QueryParam("page"))
	q.PageSize, _ = strconv.Atoi(c.QueryParam("page_size"))

	ctx, cancel := reqCtx(c)
	defer cancel()
	items, total, err := h.Spaces.Search(ctx, q)
	if err != nil {
		return respondError(c, err, "search failed")
	}
	if items == nil {
		items = []model.SpaceSummary{}
	}
	page, size := service.Paginate(q.Page, q.PageSize)
	return c.JSON(http.StatusOK, echo.Map{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": size,
	})
}

// Get returns one space.
func (h *SpaceHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	sp, err := h.Spaces.Get(ctx, id)
	if err != nil {
		return respondError(c, err, "load space failed")
	}
	return c.JSON(http.StatusOK, sp)
}

// Availability reports whether a range is free.
// GET /v1/spaces/:id/availability?start_date&end_date
func (h *SpaceHandler) Availability(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	start, end, err := parseRange(c.QueryParam("start_date"), c.QueryParam("end_date"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	av, err := h.Bookings.CheckAvailability(ctx, id, start, end)
	if err != nil {
		return respondError(c, err, "availability check failed")
	}
	return c.JSON(http.StatusOK, av)
}

// Quote prices a range.  logistics=partner_pickup adds the logistics fee.
func (h *SpaceHandler) Quote(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	start, end, err := parseRange(c.QueryParam("start_date"), c.QueryParam("end_date"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	pickup := strings.EqualFold(c.QueryParam("logistics"), pricing.LogisticsPartnerPickup)
	ctx, cancel := reqCtx(c)
	defer cancel()
	q, err := h.Bookings.Quote(ctx, id, start, end, pickup)
	if err != nil {
		return respondError(c, err, "quote failed")
	}
	return c.JSON(http.StatusOK, q)
}

// Reviews lists the reviews of a space.
func (h *SpaceHandler) Reviews(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.ReviewSvc.ListForSpace(ctx, id)
	if err != nil {
		return respondError(c, err, "list reviews failed")
	}
	if list == nil {
		list = []model.ReviewDetail{}
	}
	return c.JSON(http.StatusOK, list)
}

// Create lists a new space for the calling provider.
// POST /v1/provider/spaces
func (h *SpaceHandler) Create(c echo.Context) error {
	return withActor(c, func(actor service.Actor) error {
		var req spaceReq
		if err := bindValid(c, &req); err != nil {
			return badRequest(c, err.Error())
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		sp, err := h.Spaces.Create(ctx, actor, req.input())
		if err != nil {
			return respondError(c, err, "create space failed")
		}
		return c.JSON(http.StatusCreated, sp)
	})
}

// Update edits a space owned by the calling provider.
// PUT /v1/provider/spaces/:id
func (h *SpaceHandler) Update(c echo.Context) error {
	return withActor(c, func(actor service.Actor) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		var req spaceReq
		if err := bindValid(c, &req); err != nil {
			return badRequest(c, err.Error())
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		sp, err := h.Spaces.Update(ctx, actor, id, req.input())
		if err != nil {
			return respondError(c, err, "update space failed")
		}
		return c.JSON(http.StatusOK, sp)
	})
}

// ListForProvider lists a provider's spaces with booking counters.
// GET /v1/provider/:id/spaces
func (h *SpaceHandler) ListForProvider(c echo.Context) error {
	return withActor(c, func(actor service.Actor) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		list, err := h.Spaces.ListForProvider(ctx, actor, id)
		if err != nil {
			return respondError(c, err, "list spaces failed")
		}
		if list == nil {
			list = []model.ProviderSpace{}
		}
		return c.JSON(http.StatusOK, list)
	})
}
