package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/siaa/storage-rental/internal/middleware"
	"github.com/siaa/storage-rental/internal/model"
	"github.com/siaa/storage-rental/internal/service"
)

const requestTimeout = 5 * time.Second

var errNoIdentity = errors.New("missing identity")

// reqCtx bounds the storage calls of one request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// actorFrom builds the service actor from the identity set by JWTAuth.
func actorFrom(c echo.Context) (service.Actor, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return service.Actor{}, errNoIdentity
	}
	return service.Actor{ID: id, Role: model.Role(middleware.Role(c))}, nil
}

// withActor resolves the actor or answers 401.
func withActor(c echo.Context, fn func(service.Actor) error) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return fn(actor)
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// parseDate accepts YYYY-MM-DD or RFC 3339 and returns the calendar day
// as written, at midnight UTC.  An RFC 3339 offset does not move the day.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// parseRange reads start_date/end_date from strings.
func parseRange(start, end string) (time.Time, time.Time, error) {
	if start == "" || end == "" {
		return time.Time{}, time.Time{}, errors.New("start_date and end_date are required")
	}
	s, err := parseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid start_date")
	}
	e, err := parseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid end_date")
	}
	return s, e, nil
}

// bindValid binds the body into v and runs the validator.
func bindValid(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return errors.New("invalid body")
	}
	return validateBody(c, v)
}

// validateBody runs the validator and turns the first field error into a
// client message.
func validateBody(c echo.Context, v any) error {
	if err := c.Validate(v); err != nil {
		var fes validator.ValidationErrors
		if errors.As(err, &fes) && len(fes) > 0 {
			return errors.New(fes[0].Field() + " is invalid (" + fes[0].Tag() + ")")
		}
		return errors.New("invalid body")
	}
	return nil
}

// queryInt64 parses an optional integer query parameter.
func queryInt64(c echo.Context, name string) (int64, error) {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

func queryFloat(c echo.Context, name string) (float64, error) {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, errors.New("invalid " + name)
	}
	return f, nil
}
