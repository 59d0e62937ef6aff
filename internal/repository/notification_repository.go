package repository

import (
	"context"
	"database/sql"

	"github.com/siaa/storage-rental/internal/model"
)

// NotificationRepo stores dashboard notifications written by the booking
// event consumer.
type NotificationRepo struct {
	db *sql.DB
}

// NewNotificationRepo returns a new NotificationRepo bound to the given database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// CreateNotification inserts n and sets its id.
func (r *NotificationRepo) CreateNotification(ctx context.Context, n *model.Notification) error {
	var bookingID any
	if n.BookingID != nil {
		bookingID = *n.BookingID
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO notifications (user_id, type, title, message, booking_id) VALUES (?, ?, ?, ?, ?)",
		n.UserID, n.Type, n.Title, n.Message, bookingID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// ListNotifications returns up to limit of the user's notifications, newest
// first.
func (r *NotificationRepo) ListNotifications(ctx context.Context, userID uint64, limit int) ([]model.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, type, title, message, booking_id, is_read, created_at
		 FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		var (
			n  model.Notification
			bk sql.NullInt64
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &bk, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		if bk.Valid {
			v := uint64(bk.Int64)
			n.BookingID = &v
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead marks one of the user's notifications as read.
func (r *NotificationRepo) MarkNotificationRead(ctx context.Context, id, userID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	return expectOne(res)
}
