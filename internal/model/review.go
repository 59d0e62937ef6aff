package model

import "time"

// Review is a seeker's rating of a completed booking.  At most one review
// exists per booking (unique index on reviews.booking_id).
type Review struct {
	ID               uint64    `json:"id"`
	BookingID        uint64    `json:"booking_id"`
	ReviewerSeekerID uint64    `json:"reviewer_seeker_id"`
	Rating           int       `json:"rating"`
	Comment          string    `json:"comment"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ReviewDetail is a review joined with the reviewed space and the names of
// both parties.
type ReviewDetail struct {
	Review
	SpaceID       uint64        `json:"space_id"`
	SpaceTitle    string        `json:"space_title"`
	SpaceType     string        `json:"space_type"`
	BookingStatus BookingStatus `json:"booking_status"`
	ReviewerName  string        `json:"reviewer_name"`
	ProviderName  string        `json:"provider_name"`
}
