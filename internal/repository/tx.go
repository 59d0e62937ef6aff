package repository

import (
	"context"

	"github.com/siaa/storage-rental/internal/model"
)

// SpaceTx is the view of the store while a space is locked.  Every read
// and the insert run in the same transaction, under an exclusive lock on
// the space row.
type SpaceTx interface {
	Space() *model.Space
	ActiveBookings(ctx context.Context) ([]model.Booking, error)
	InsertBooking(ctx context.Context, b *model.Booking) error
}
