package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siaa/storage-rental/internal/config"
	"github.com/siaa/storage-rental/internal/handler"
	"github.com/siaa/storage-rental/internal/middleware"
	"github.com/siaa/storage-rental/internal/model"
	"github.com/siaa/storage-rental/internal/repository/memory"
	"github.com/siaa/storage-rental/internal/service"
	"github.com/siaa/storage-rental/internal/utils"
)

const testSecret = "router-test-secret"

type api struct {
	t     *testing.T
	e     *echo.Echo
	store *memory.Store
}

func newAPI(t *testing.T) *api {
	t.Helper()
	store := memory.New()
	cfg := config.Config{JWTSecret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}

	bookings := service.NewBookingService(store, store, store, store, nil)
	reviews := service.NewReviewService(store, store)
	spaces := service.NewSpaceService(store)

	e := echo.New()
	e.Validator = middleware.NewValidator()
	bookingH := handler.NewBookingHandler(bookings, reviews)
	spaceH := handler.NewSpaceHandler(spaces, bookings, reviews)
	dashH := handler.NewDashboardHandler(bookings, reviews)

	RegisterRoutes(e, nil)
	RegisterAuth(e, handler.NewAuthHandler(cfg, store, store), handler.NewNotificationHandler(store), bookingH, testSecret)
	noCache := middleware.NewRedisCache(config.CacheConfig{}, nil)
	RegisterPublic(e, spaceH, noCache, noCache)
	RegisterSeeker(e, bookingH, dashH, testSecret)
	RegisterProvider(e, spaceH, dashH, testSecret)
	return &api{t: t, e: e, store: store}
}

func (a *api) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type account struct {
	ID      uint64
	Token   string
	Refresh string
}

type authBody struct {
	User struct {
		ID uint64 `json:"id"`
	} `json:"user"`
	Access struct {
		Token string `json:"token"`
	} `json:"access"`
	Refresh struct {
		Token string `json:"token"`
	} `json:"refresh"`
}

func (a *api) register(email string, role model.Role) account {
	a.t.Helper()
	body := map[string]any{
		"email": email, "password": "correct-horse", "role": role,
		"first_name": "Test", "last_name": "User",
	}
	if role == model.RoleProvider {
		body["business_name"] = "Dry Boxes"
	}
	rec := a.do(http.MethodPost, "/v1/auth/register", body, "")
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode[authBody](a.t, rec)
	return account{ID: out.User.ID, Token: out.Access.Token, Refresh: out.Refresh.Token}
}

func (a *api) space(provider account) uint64 {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/v1/provider/spaces", map[string]any{
		"title": "Dry garage", "space_type": "Garage", "size_sqm": 18,
		"city": "Riyadh", "address": "Olaya", "price_per_day_cents": 1000,
	}, provider.Token)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.Space](a.t, rec).ID
}

func (a *api) book(seeker account, spaceID uint64, start, end string) *httptest.ResponseRecorder {
	return a.do(http.MethodPost, "/v1/bookings", map[string]any{
		"space_id": spaceID, "start_date": start, "end_date": end,
	}, seeker.Token)
}

func (a *api) setStatus(acc account, bookingID uint64, status model.BookingStatus) *httptest.ResponseRecorder {
	return a.do(http.MethodPut, fmt.Sprintf("/v1/bookings/%d/status", bookingID), map[string]any{"status": status}, acc.Token)
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = a.do(http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBookingLifecycle(t *testing.T) {
	a := newAPI(t)
	provider := a.register("host@example.com", model.RoleProvider)
	seeker := a.register("renter@example.com", model.RoleSeeker)
	other := a.register("someone@example.com", model.RoleSeeker)
	spaceID := a.space(provider)

	search := a.do(http.MethodGet, "/v1/spaces?city=riyadh", nil, "")
	require.Equal(t, http.StatusOK, search.Code)
	assert.Equal(t, float64(1), decode[map[string]any](t, search)["total"])

	rec := a.do(http.MethodGet, fmt.Sprintf("/v1/spaces/%d/quote?start_date=2030-03-01&end_date=2030-03-10&logistics=partner_pickup", spaceID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"days":9,"base_cents":9000,"tax_cents":1350,"insurance_cents":450,"logistics_cents":630,"total_cents":11430}`, rec.Body.String())

	rec = a.book(seeker, spaceID, "2030-03-01", "2030-03-10")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decode[model.Booking](t, rec)
	assert.Equal(t, model.BookingStatusPending, b.Status)
	assert.Equal(t, int64(9000), b.TotalAmountCents)

	rec = a.book(other, spaceID, "2030-03-10", "2030-03-12")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/spaces/%d/availability?start_date=2030-03-05&end_date=2030-03-06", spaceID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	av := decode[service.Availability](t, rec)
	assert.False(t, av.Available)
	assert.Equal(t, service.ReasonDateConflict, av.Reason)

	// review before completion
	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/review", b.ID), map[string]any{"rating": 5, "comment": "Dry, clean and secure"}, seeker.Token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusNotFound, a.setStatus(other, b.ID, model.BookingStatusConfirmed).Code)
	assert.Equal(t, http.StatusBadRequest, a.setStatus(provider, b.ID, model.BookingStatusCompleted).Code)
	assert.Equal(t, http.StatusBadRequest, a.setStatus(provider, b.ID, "Bogus").Code)
	for _, st := range []model.BookingStatus{model.BookingStatusConfirmed, model.BookingStatusActive, model.BookingStatusCompleted} {
		rec = a.setStatus(provider, b.ID, st)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec = a.do(http.MethodDelete, fmt.Sprintf("/v1/bookings/%d", b.ID), nil, seeker.Token)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "completed bookings cannot be cancelled")

	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/review", b.ID), map[string]any{"rating": 5, "comment": "Dry, clean and secure"}, seeker.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/review", b.ID), map[string]any{"rating": 4, "comment": "Second opinion here"}, seeker.Token)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/seeker/%d/statistics", seeker.ID), nil, seeker.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[model.SeekerStats](t, rec)
	assert.Equal(t, int64(1), stats.CompletedBookings)
	assert.Equal(t, int64(9000), stats.TotalSpentCents)

	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/provider/%d/statistics", provider.ID), nil, provider.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(9000), decode[model.ProviderStats](t, rec).TotalRevenueCents)

	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/spaces/%d/reviews", spaceID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.ReviewDetail](t, rec), 1)
}

func TestOwnershipIsReportedAsNotFound(t *testing.T) {
	a := newAPI(t)
	provider := a.register("host@example.com", model.RoleProvider)
	seeker := a.register("renter@example.com", model.RoleSeeker)
	other := a.register("someone@example.com", model.RoleSeeker)
	spaceID := a.space(provider)

	rec := a.do(http.MethodPost, "/v1/bookings", map[string]any{
		"seeker_id": other.ID, "space_id": spaceID, "start_date": "2030-01-01", "end_date": "2030-01-02",
	}, seeker.Token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.book(seeker, spaceID, "2030-01-01", "2030-01-02")
	require.Equal(t, http.StatusCreated, rec.Code)
	b := decode[model.Booking](t, rec)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, fmt.Sprintf("/v1/bookings/%d", b.ID), nil, other.Token).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, fmt.Sprintf("/v1/bookings/%d", b.ID), nil, provider.Token).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, fmt.Sprintf("/v1/seeker/%d/bookings", seeker.ID), nil, other.Token).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/v1/bookings/999", nil, seeker.Token).Code)

	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/seeker/%d/bookings", seeker.ID), nil, seeker.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.BookingDetail](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Dry garage", list[0].SpaceTitle)

	rec = a.do(http.MethodDelete, fmt.Sprintf("/v1/bookings/%d", b.ID), nil, seeker.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.BookingStatusCancelled, decode[model.Booking](t, rec).Status)

	// the cancelled booking no longer blocks the dates
	assert.Equal(t, http.StatusCreated, a.book(other, spaceID, "2030-01-01", "2030-01-02").Code)
}

func TestBookingValidation(t *testing.T) {
	a := newAPI(t)
	provider := a.register("host@example.com", model.RoleProvider)
	seeker := a.register("renter@example.com", model.RoleSeeker)
	spaceID := a.space(provider)

	assert.Equal(t, http.StatusBadRequest, a.book(seeker, spaceID, "2030-01-05", "2030-01-01").Code)
	assert.Equal(t, http.StatusBadRequest, a.book(seeker, spaceID, "05/01/2030", "2030-01-06").Code)
	assert.Equal(t, http.StatusNotFound, a.book(seeker, 999, "2030-01-01", "2030-01-02").Code)
	assert.Equal(t, http.StatusUnauthorized, a.book(account{}, spaceID, "2030-01-01", "2030-01-02").Code)
	assert.Equal(t, http.StatusForbidden, a.book(provider, spaceID, "2030-01-01", "2030-01-02").Code)

	rec := a.do(http.MethodPut, fmt.Sprintf("/v1/provider/spaces/%d", spaceID), map[string]any{
		"title": "Dry garage", "space_type": "Garage", "size_sqm": 18, "city": "Riyadh", "is_available": false,
	}, provider.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.book(seeker, spaceID, "2030-01-01", "2030-01-02")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not available")
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t)
	seeker := a.register("renter@example.com", model.RoleSeeker)

	rec := a.do(http.MethodPost, "/v1/auth/register", map[string]any{
		"email": "RENTER@example.com", "password": "correct-horse", "role": "seeker", "first_name": "A", "last_name": "B",
	}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/v1/auth/register", map[string]any{
		"email": "host@example.com", "password": "correct-horse", "role": "PROVIDER", "first_name": "A", "last_name": "B",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "providers need a business name")

	rec = a.do(http.MethodPost, "/v1/auth/login", map[string]any{"email": "renter@example.com", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/v1/auth/login", map[string]any{"email": "renter@example.com", "password": "correct-horse"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodPost, "/v1/auth/refresh", map[string]any{"refresh_token": seeker.Refresh}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decode[authBody](t, rec)
	rec = a.do(http.MethodPost, "/v1/auth/refresh", map[string]any{"refresh_token": seeker.Refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "refresh tokens are single use")

	rec = a.do(http.MethodPut, "/v1/me", map[string]any{"first_name": "Nora", "last_name": "Q", "phone": "0500000000"}, seeker.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = a.do(http.MethodGet, "/v1/me", nil, seeker.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[model.User](t, rec)
	assert.Equal(t, "Nora", me.FirstName)
	assert.Equal(t, model.RoleSeeker, me.Role)

	rec = a.do(http.MethodPost, "/v1/auth/logout", nil, seeker.Token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(http.MethodPost, "/v1/auth/refresh", map[string]any{"refresh_token": rotated.Refresh.Token}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "logout revokes every session")
}

func TestSuspendedAccountCannotLogin(t *testing.T) {
	a := newAPI(t)
	hash, err := utils.HashPassword("correct-horse", 4)
	require.NoError(t, err)
	u := &model.User{
		Email: "gone@example.com", Role: model.RoleSeeker, AccountStatus: model.AccountStatusSuspended,
		PasswordHash: hash,
	}
	require.NoError(t, a.store.CreateUser(context.Background(), u))

	rec := a.do(http.MethodPost, "/v1/auth/login", map[string]any{"email": "gone@example.com", "password": "correct-horse"}, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(http.MethodPost, "/v1/auth/login", map[string]any{"email": "gone@example.com", "password": "wrong-horse"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNotifications(t *testing.T) {
	a := newAPI(t)
	seeker := a.register("renter@example.com", model.RoleSeeker)
	other := a.register("someone@example.com", model.RoleSeeker)
	n := &model.Notification{UserID: seeker.ID, Type: "booking.created", Title: "Booking request sent", Message: "pending"}
	require.NoError(t, a.store.CreateNotification(context.Background(), n))

	rec := a.do(http.MethodGet, "/v1/notifications", nil, seeker.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.Notification](t, rec)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsRead)

	path := fmt.Sprintf("/v1/notifications/%d/read", n.ID)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPut, path, nil, other.Token).Code)
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodPut, path, nil, seeker.Token).Code)

	rec = a.do(http.MethodGet, "/v1/notifications", nil, other.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
