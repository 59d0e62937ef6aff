package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siaa/storage-rental/internal/model"
)

func (f *fixture) completed(t *testing.T) *model.Booking {
	t.Helper()
	ctx := context.Background()
	b := f.book(t, day(2025, 3, 1), day(2025, 3, 10))
	for _, st := range []model.BookingStatus{model.BookingStatusConfirmed, model.BookingStatusActive, model.BookingStatusCompleted} {
		_, err := f.bookings.Transition(ctx, f.provider, b.ID, st)
		require.NoError(t, err)
	}
	return b
}

func TestSubmitReviewRequiresCompleted(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, day(2025, 3, 1), day(2025, 3, 10))
	_, err := f.reviews.Submit(context.Background(), f.seeker, b.ID, 5, "Clean and dry, great host")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSubmitReviewOncePerBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.completed(t)

	r, err := f.reviews.Submit(ctx, f.seeker, b.ID, 4, "  Clean and dry, great host  ")
	require.NoError(t, err)
	assert.Equal(t, "Clean and dry, great host", r.Comment)
	assert.Equal(t, f.seeker.ID, r.ReviewerSeekerID)

	_, err = f.reviews.Submit(ctx, f.seeker, b.ID, 5, "Second thoughts, even better")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestSubmitReviewConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.completed(t)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 4)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.reviews.Submit(ctx, f.seeker, b.ID, 5, "Clean and dry, great host")
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicate)
	}
	assert.Equal(t, 1, ok)
}

func TestSubmitReviewValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.completed(t)

	_, err := f.reviews.Submit(ctx, f.seeker, b.ID, 0, "Clean and dry, great host")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.reviews.Submit(ctx, f.seeker, b.ID, 6, "Clean and dry, great host")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.reviews.Submit(ctx, f.seeker, b.ID, 3, "   too short   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSubmitReviewOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.completed(t)

	_, err := f.reviews.Submit(ctx, f.other, b.ID, 5, "Clean and dry, great host")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.reviews.Submit(ctx, f.provider, b.ID, 5, "Clean and dry, great host")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.reviews.Submit(ctx, f.seeker, 9999, 5, "Clean and dry, great host")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAndDeleteReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.completed(t)
	r, err := f.reviews.Submit(ctx, f.seeker, b.ID, 4, "Clean and dry, great host")
	require.NoError(t, err)

	_, err = f.reviews.Update(ctx, f.other, r.ID, 1, "Not my review to edit")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.reviews.Update(ctx, f.seeker, r.ID, 2, "short")
	assert.ErrorIs(t, err, ErrValidation)

	up, err := f.reviews.Update(ctx, f.seeker, r.ID, 2, "Roof leaked in the rain")
	require.NoError(t, err)
	assert.Equal(t, 2, up.Rating)

	list, err := f.reviews.ListForSpace(ctx, f.space.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Roof leaked in the rain", list[0].Comment)
	assert.Equal(t, f.space.Title, list[0].SpaceTitle)

	mine, err := f.reviews.ListForSeeker(ctx, f.seeker, f.seeker.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	onMine, err := f.reviews.ListForProvider(ctx, f.provider, f.provider.ID)
	require.NoError(t, err)
	assert.Len(t, onMine, 1)

	assert.ErrorIs(t, f.reviews.Delete(ctx, f.other, r.ID), ErrUnauthorized)
	require.NoError(t, f.reviews.Delete(ctx, f.seeker, r.ID))
	assert.ErrorIs(t, f.reviews.Delete(ctx, f.seeker, r.ID), ErrNotFound)

	list, err = f.reviews.ListForSpace(ctx, f.space.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
