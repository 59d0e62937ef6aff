package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/siaa/storage-rental/internal/service"
	"github.com/siaa/storage-rental/internal/utils"
)

// respondError maps a service error onto its HTTP status and answers
// {"error": message}.  Ownership failures are reported as 404 so callers
// cannot probe for other accounts' resources.  Anything that is not a
// domain error is logged and answered 500 with fallback.
func respondError(c echo.Context, err error, fallback string) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrSpaceUnavailable),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrInvalidTransition):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found or unauthorized"})
	case errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrDuplicate):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		utils.Logger.WithError(err).WithFields(logrus.Fields{
			"method":     c.Request().Method,
			"route":      c.Path(),
			"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		}).Error(fallback)
		return c.JSON(status, echo.Map{"error": fallback})
	}
	return c.JSON(status, echo.Map{"error": service.PublicMessage(err, err.Error())})
}
