package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "Pending"
	BookingStatusConfirmed BookingStatus = "Confirmed"
	BookingStatusActive    BookingStatus = "Active"
	BookingStatusCompleted BookingStatus = "Completed"
	BookingStatusCancelled BookingStatus = "Cancelled"
)

// ParseBookingStatus returns the status named by s and whether it is known.
// Matching is exact; the API uses the capitalised names.
func ParseBookingStatus(s string) (BookingStatus, bool) {
	st := BookingStatus(s)
	switch st {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusActive,
		BookingStatusCompleted, BookingStatusCancelled:
		return st, true
	}
	return "", false
}

// Terminal reports whether no further transitions are permitted.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// Blocking reports whether a booking in this status holds its date range
// against other bookings of the same space.
func (s BookingStatus) Blocking() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusActive:
		return true
	case BookingStatusCompleted, BookingStatusCancelled:
		return false
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal step of the
// booking state machine:
//
//	Pending   -> Confirmed | Cancelled
//	Confirmed -> Active    | Cancelled
//	Active    -> Completed | Cancelled
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == BookingStatusCancelled {
		return true
	}
	switch s {
	case BookingStatusPending:
		return next == BookingStatusConfirmed
	case BookingStatusConfirmed:
		return next == BookingStatusActive
	case BookingStatusActive:
		return next == BookingStatusCompleted
	}
	return false
}

// NonBlockingStatuses lists the statuses ignored by the conflict scan.
var NonBlockingStatuses = []BookingStatus{BookingStatusCancelled, BookingStatusCompleted}

// Booking records a seeker's reservation of a space for an inclusive date
// range.  Bookings are never deleted; cancellation is a status write.
//
// Fields:
//
//	ID               – primary key identifier.
//	SeekerID         – account that made the booking.
//	SpaceID          – space being rented.
//	StartDate        – first day of the rental (UTC midnight).
//	EndDate          – last day of the rental (UTC midnight, >= StartDate).
//	TotalAmountCents – agreed amount in minor units.
//	Status           – lifecycle state.
//	CreatedAt        – creation timestamp.
//	UpdatedAt        – last update timestamp.
type Booking struct {
	ID               uint64        `json:"id"`
	SeekerID         uint64        `json:"seeker_id"`
	SpaceID          uint64        `json:"space_id"`
	StartDate        time.Time     `json:"start_date"`
	EndDate          time.Time     `json:"end_date"`
	TotalAmountCents int64         `json:"total_amount_cents"`
	Status           BookingStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Overlaps reports whether the inclusive range [start, end] intersects the
// booking's inclusive range.  Adjacent ranges do not overlap.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return !start.After(b.EndDate) && !end.Before(b.StartDate)
}

// BookingDetail is a booking joined with the space and counterpart details
// for dashboard listings.
type BookingDetail struct {
	Booking
	SpaceTitle    string `json:"space_title"`
	SpaceType     string `json:"space_type"`
	City          string `json:"city"`
	Address       string `json:"address"`
	ProviderID    uint64 `json:"provider_id"`
	ProviderName  string `json:"provider_name,omitempty"`
	ProviderPhone string `json:"provider_phone,omitempty"`
	SeekerName    string `json:"seeker_name,omitempty"`
	SeekerPhone   string `json:"seeker_phone,omitempty"`
	SeekerEmail   string `json:"seeker_email,omitempty"`
}

// SeekerStats aggregates a seeker's bookings for the dashboard.
type SeekerStats struct {
	TotalBookings     int64 `json:"total_bookings"`
	ActiveBookings    int64 `json:"active_bookings"`
	PendingBookings   int64 `json:"pending_bookings"`
	CompletedBookings int64 `json:"completed_bookings"`
	TotalSpentCents   int64 `json:"total_spent_cents"`
}

// ProviderStats aggregates a provider's spaces and bookings for the
// dashboard.
type ProviderStats struct {
	TotalSpaces        int64 `json:"total_spaces"`
	ActiveSpaces       int64 `json:"active_spaces"`
	PendingSpaces      int64 `json:"pending_spaces"`
	TotalBookings      int64 `json:"total_bookings"`
	TotalRevenueCents  int64 `json:"total_revenue_cents"`
	ActiveRevenueCents int64 `json:"active_revenue_cents"`
}
