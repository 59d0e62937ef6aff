package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/siaa/storage-rental/internal/model"
	"github.com/siaa/storage-rental/internal/repository"
)

// Review bounds.
const (
	MinRating        = 1
	MaxRating        = 5
	MinCommentLength = 10
)

// ReviewService gates reviews: one per completed booking, written by the
// booking's seeker.
type ReviewService struct {
	bookings BookingRepository
	reviews  ReviewRepository
}

// NewReviewService wires the service.
func NewReviewService(bookings BookingRepository, reviews ReviewRepository) *ReviewService {
	return &ReviewService{bookings: bookings, reviews: reviews}
}

func validateReview(rating int, comment string) (string, error) {
	if rating < MinRating || rating > MaxRating {
		return "", newError(ErrValidation, "rating must be between %d and %d", MinRating, MaxRating)
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) < MinCommentLength {
		return "", newError(ErrValidation, "comment must be at least %d characters", MinCommentLength)
	}
	return comment, nil
}

// Submit creates the review of a completed booking.
func (s *ReviewService) Submit(ctx context.Context, actor Actor, bookingID uint64, rating int, comment string) (*model.Review, error) {
	comment, err := validateReview(rating, comment)
	if err != nil {
		return nil, err
	}
	if bookingID == 0 {
		return nil, newError(ErrValidation, "booking id is required")
	}
	b, err := s.bookings.GetBooking(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(ErrNotFound, "booking not found")
	}
	if err != nil {
		return nil, err
	}
	if actor.Role != model.RoleSeeker || actor.ID != b.SeekerID {
		return nil, newError(ErrUnauthorized, "booking not found or unauthorized")
	}
	if b.Status != model.BookingStatusCompleted {
		return nil, newError(ErrInvalidState, "only completed bookings can be reviewed")
	}
	if _, err := s.reviews.GetReviewByBooking(ctx, bookingID); err == nil {
		return nil, newError(ErrDuplicate, "booking has already been reviewed")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	r := &model.Review{
		BookingID:        bookingID,
		ReviewerSeekerID: actor.ID,
		Rating:           rating,
		Comment:          comment,
	}
	if err := s.reviews.CreateReview(ctx, r); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrDuplicate, "booking has already been reviewed")
		}
		return nil, err
	}
	return r, nil
}

func (s *ReviewService) owned(ctx context.Context, actor Actor, reviewID uint64) (*model.Review, error) {
	if reviewID == 0 {
		return nil, newError(ErrValidation, "review id is required")
	}
	r, err := s.reviews.GetReview(ctx, reviewID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(ErrNotFound, "review not found")
	}
	if err != nil {
		return nil, err
	}
	if actor.Role != model.RoleSeeker || actor.ID != r.ReviewerSeekerID {
		return nil, newError(ErrUnauthorized, "review not found or unauthorized")
	}
	return r, nil
}

// Update changes the rating and comment of the actor's review.
func (s *ReviewService) Update(ctx context.Context, actor Actor, reviewID uint64, rating int, comment string) (*model.Review, error) {
	comment, err := validateReview(rating, comment)
	if err != nil {
		return nil, err
	}
	r, err := s.owned(ctx, actor, reviewID)
	if err != nil {
		return nil, err
	}
	r.Rating = rating
	r.Comment = comment
	if err := s.reviews.UpdateReview(ctx, r); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "review not found")
		}
		return nil, err
	}
	return r, nil
}

// Delete removes the actor's review.
func (s *ReviewService) Delete(ctx context.Context, actor Actor, reviewID uint64) error {
	r, err := s.owned(ctx, actor, reviewID)
	if err != nil {
		return err
	}
	if err := s.reviews.DeleteReview(ctx, r.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, "review not found")
		}
		return err
	}
	return nil
}

// ListForSpace returns the public reviews of a space.
func (s *ReviewService) ListForSpace(ctx context.Context, spaceID uint64) ([]model.ReviewDetail, error) {
	return s.reviews.ListReviewsBySpace(ctx, spaceID)
}

// ListForSeeker returns the reviews written by the seeker.
func (s *ReviewService) ListForSeeker(ctx context.Context, actor Actor, seekerID uint64) ([]model.ReviewDetail, error) {
	if actor.Role != model.RoleSeeker || actor.ID != seekerID {
		return nil, newError(ErrUnauthorized, "seeker not found")
	}
	return s.reviews.ListReviewsBySeeker(ctx, seekerID)
}

// ListForProvider returns the reviews on the provider's spaces.
func (s *ReviewService) ListForProvider(ctx context.Context, actor Actor, providerID uint64) ([]model.ReviewDetail, error) {
	if actor.Role != model.RoleProvider || actor.ID != providerID {
		return nil, newError(ErrUnauthorized, "provider not found")
	}
	return s.reviews.ListReviewsByProvider(ctx, providerID)
}
