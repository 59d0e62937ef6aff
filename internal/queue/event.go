// Package queue defines message payloads exchanged over the message broker
// and the consumer that turns them into dashboard notifications.
package queue

// BookingQueueName is the durable queue carrying booking events.
const BookingQueueName = "booking.events"

// Event types carried in BookingEvent.Type.
const (
	EventBookingCreated       = "booking.created"
	EventBookingStatusChanged = "booking.status_changed"
)

// BookingEvent is published after a booking is created or changes status.
// It carries enough information for consumers to notify both parties
// without querying the primary database.
type BookingEvent struct {
	Type             string `json:"type"`
	BookingID        uint64 `json:"booking_id"`
	SpaceID          uint64 `json:"space_id"`
	SpaceTitle       string `json:"space_title"`
	SeekerID         uint64 `json:"seeker_id"`
	ProviderID       uint64 `json:"provider_id"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	TotalAmountCents int64  `json:"total_amount_cents"`
	PreviousStatus   string `json:"previous_status,omitempty"`
	Status           string `json:"status"`
	OccurredAt       string `json:"occurred_at"`
}
