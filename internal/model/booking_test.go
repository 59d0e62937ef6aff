package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	all := []BookingStatus{BookingStatusPending, BookingStatusConfirmed, BookingStatusActive, BookingStatusCompleted, BookingStatusCancelled}
	legal := map[[2]BookingStatus]bool{
		{BookingStatusPending, BookingStatusConfirmed}:   true,
		{BookingStatusPending, BookingStatusCancelled}:   true,
		{BookingStatusConfirmed, BookingStatusActive}:    true,
		{BookingStatusConfirmed, BookingStatusCancelled}: true,
		{BookingStatusActive, BookingStatusCompleted}:    true,
		{BookingStatusActive, BookingStatusCancelled}:    true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, legal[[2]BookingStatus{from, to}], from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestParseBookingStatus(t *testing.T) {
	st, ok := ParseBookingStatus("Confirmed")
	assert.True(t, ok)
	assert.Equal(t, BookingStatusConfirmed, st)

	_, ok = ParseBookingStatus("confirmed")
	assert.False(t, ok)
	_, ok = ParseBookingStatus("UnderReview")
	assert.False(t, ok)
}

func TestOverlaps(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC) }
	b := Booking{StartDate: d(1), EndDate: d(10)}

	assert.True(t, b.Overlaps(d(5), d(15)))
	assert.True(t, b.Overlaps(d(10), d(12)), "shared end day")
	assert.True(t, b.Overlaps(d(2), d(3)), "contained")
	assert.False(t, b.Overlaps(d(11), d(20)), "adjacent")
	assert.False(t, b.Overlaps(time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC), time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)))
}

func TestBlocking(t *testing.T) {
	assert.True(t, BookingStatusPending.Blocking())
	assert.True(t, BookingStatusActive.Blocking())
	assert.False(t, BookingStatusCancelled.Blocking())
	assert.False(t, BookingStatusCompleted.Blocking())
}
