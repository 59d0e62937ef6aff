package service

import (
	"context"
	"time"

	"github.com/siaa/storage-rental/internal/model"
	"github.com/siaa/storage-rental/internal/queue"
	"github.com/siaa/storage-rental/internal/repository"
)

// SpaceRepository is the space lookup and listing store.
type SpaceRepository interface {
	GetSpace(ctx context.Context, id uint64) (*model.Space, error)
	CreateSpace(ctx context.Context, s *model.Space) error
	UpdateSpace(ctx context.Context, s *model.Space) error
	SearchSpaces(ctx context.Context, q model.SpaceSearch) ([]model.SpaceSummary, int64, error)
	ListSpacesByProvider(ctx context.Context, providerID uint64) ([]model.ProviderSpace, error)
	ProviderStatistics(ctx context.Context, providerID uint64) (model.ProviderStats, error)
}

// BookingRepository reads bookings and performs status writes.  Inserts go
// through SpaceLocker so that they are serialized with the conflict scan.
type BookingRepository interface {
	GetBooking(ctx context.Context, id uint64) (*model.Booking, error)
	ListActiveBookingsForSpace(ctx context.Context, spaceID uint64) ([]model.Booking, error)
	ListBookingsBySeeker(ctx context.Context, seekerID uint64) ([]model.BookingDetail, error)
	ListBookingsByProvider(ctx context.Context, providerID uint64) ([]model.BookingDetail, error)
	// UpdateBookingStatus moves the booking from one status to another and
	// returns repository.ErrStaleStatus when the stored status is not from.
	UpdateBookingStatus(ctx context.Context, id uint64, from, to model.BookingStatus) error
	// ListBookingsForSweep returns bookings in status whose StartDate (when
	// byStart) or EndDate is on or before the given day.
	ListBookingsForSweep(ctx context.Context, status model.BookingStatus, byStart bool, day time.Time) ([]model.Booking, error)
	SeekerStatistics(ctx context.Context, seekerID uint64) (model.SeekerStats, error)
}

// SpaceLocker runs fn while holding an exclusive lock on one space.  The
// implementation commits when fn returns nil and rolls back otherwise.  It
// returns repository.ErrNotFound when the space does not exist.
type SpaceLocker interface {
	WithSpaceLock(ctx context.Context, spaceID uint64, fn func(ctx context.Context, tx repository.SpaceTx) error) error
}

// ReviewRepository persists reviews.  CreateReview returns
// repository.ErrDuplicate when the booking already has a review.
type ReviewRepository interface {
	GetReview(ctx context.Context, id uint64) (*model.Review, error)
	GetReviewByBooking(ctx context.Context, bookingID uint64) (*model.Review, error)
	CreateReview(ctx context.Context, r *model.Review) error
	UpdateReview(ctx context.Context, r *model.Review) error
	DeleteReview(ctx context.Context, id uint64) error
	ListReviewsBySpace(ctx context.Context, spaceID uint64) ([]model.ReviewDetail, error)
	ListReviewsBySeeker(ctx context.Context, seekerID uint64) ([]model.ReviewDetail, error)
	ListReviewsByProvider(ctx context.Context, providerID uint64) ([]model.ReviewDetail, error)
}

// UserReader is the identity lookup used to check that a claimed seeker
// exists and is allowed to book.
type UserReader interface {
	GetUserByID(ctx context.Context, id uint64) (*model.User, error)
}

// EventPublisher delivers booking events to downstream consumers.
type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, ev queue.BookingEvent) error
}
