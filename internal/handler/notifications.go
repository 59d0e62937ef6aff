package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/siaa/storage-rental/internal/model"
	"github.com/siaa/storage-rental/internal/repository"
	"github.com/siaa/storage-rental/internal/service"
)

// NotificationStore reads and acknowledges account notifications.
type NotificationStore interface {
	ListNotifications(ctx context.Context, userID uint64, limit int) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID uint64) error
}

type NotificationHandler struct {
	Store NotificationStore
}

func NewNotificationHandler(s NotificationStore) *NotificationHandler {
	return &NotificationHandler{Store: s}
}

// List returns the caller's newest notifications (limit, default 50, max 200).
func (h *NotificationHandler) List(c echo.Context) error {
	return withActor(c, func(actor service.Actor) error {
		limit, _ := strconv.Atoi(c.QueryParam("limit"))
		if limit < 1 {
			limit = 50
		}
		if limit > 200 {
			limit = 200
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		list, err := h.Store.ListNotifications(ctx, actor.ID, limit)
		if err != nil {
			return respondError(c, err, "list notifications failed")
		}
		return c.JSON(http.StatusOK, emptyIfNil(list))
	})
}

// MarkRead marks one of the caller's notifications read.
// PUT /v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	return withActor(c, func(actor service.Actor) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		if err := h.Store.MarkNotificationRead(ctx, id, actor.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "notification not found"})
			}
			return respondError(c, err, "mark notification failed")
		}
		return c.NoContent(http.StatusNoContent)
	})
}
