package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/siaa/storage-rental/internal/model"
	"github.com/siaa/storage-rental/internal/pricing"
	"github.com/siaa/storage-rental/internal/queue"
	"github.com/siaa/storage-rental/internal/repository"
	"github.com/siaa/storage-rental/internal/utils"
)

const publishTimeout = 3 * time.Second

// Actor is the authenticated party performing an operation.  System is set
// for scheduled jobs, which may act on any booking.
type Actor struct {
	ID     uint64
	Role   model.Role
	System bool
}

// SystemActor is used by the status sweep.
var SystemActor = Actor{System: true}

// Reasons reported by CheckAvailability when a range cannot be booked.
const (
	ReasonSpaceUnavailable = "space_unavailable"
	ReasonDateConflict     = "date_conflict"
)

// Availability is the result of an availability check.  Reason is empty
// when Available is true.
type Availability struct {
	Available             bool     `json:"available"`
	Reason                string   `json:"reason,omitempty"`
	ConflictingBookingIDs []uint64 `json:"conflicting_booking_ids,omitempty"`
}

// CreateBookingInput carries the fields of a new booking.  A nil
// TotalAmountCents asks the service to price the booking from the space's
// rates; a supplied amount is stored as given.
type CreateBookingInput struct {
	SeekerID         uint64
	SpaceID          uint64
	StartDate        time.Time
	EndDate          time.Time
	TotalAmountCents *int64
}

// BookingService owns availability checks, booking creation and the
// booking status state machine.
type BookingService struct {
	spaces   SpaceRepository
	bookings BookingRepository
	locker   SpaceLocker
	users    UserReader
	events   EventPublisher
	now      func() time.Time
}

// NewBookingService wires the service.  events may be nil, in which case no
// booking events are published.
func NewBookingService(spaces SpaceRepository, bookings BookingRepository, locker SpaceLocker, users UserReader, events EventPublisher) *BookingService {
	return &BookingService{
		spaces:   spaces,
		bookings: bookings,
		locker:   locker,
		users:    users,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Day truncates t to midnight UTC.  Booking ranges are stored and compared
// as whole days.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validateRange(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() || end.IsZero() {
		return start, end, newError(ErrValidation, "start_date and end_date are required")
	}
	start, end = Day(start), Day(end)
	if end.Before(start) {
		return start, end, newError(ErrValidation, "end_date must not be before start_date")
	}
	return start, end, nil
}

// conflicts returns the ids of blocking bookings overlapping [start, end].
func conflicts(existing []model.Booking, start, end time.Time) []uint64 {
	var ids []uint64
	for i := range existing {
		b := &existing[i]
		if !b.Status.Blocking() {
			continue
		}
		if b.Overlaps(start, end) {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

// CheckAvailability reports whether [start, end] is free on the space.  A
// space that is not bookable is reported before any date is considered.
func (s *BookingService) CheckAvailability(ctx context.Context, spaceID uint64, start, end time.Time) (Availability, error) {
	if spaceID == 0 {
		return Availability{}, newError(ErrValidation, "space_id is required")
	}
	start, end, err := validateRange(start, end)
	if err != nil {
		return Availability{}, err
	}
	sp, err := s.spaces.GetSpace(ctx, spaceID)
	if errors.Is(err, repository.ErrNotFound) {
		return Availability{}, newError(ErrNotFound, "space not found")
	}
	if err != nil {
		return Availability{}, err
	}
	if !sp.Bookable() {
		return Availability{Reason: ReasonSpaceUnavailable}, nil
	}
	existing, err := s.bookings.ListActiveBookingsForSpace(ctx, spaceID)
	if err != nil {
		return Availability{}, err
	}
	if ids := conflicts(existing, start, end); len(ids) > 0 {
		return Availability{Reason: ReasonDateConflict, ConflictingBookingIDs: ids}, nil
	}
	return Availability{Available: true}, nil
}

// Quote prices [start, end] on the space, with the logistics fee when
// partnerPickup is set.
func (s *BookingService) Quote(ctx context.Context, spaceID uint64, start, end time.Time, partnerPickup bool) (pricing.Quote, error) {
	start, end, err := validateRange(start, end)
	if err != nil {
		return pricing.Quote{}, err
	}
	sp, err := s.spaces.GetSpace(ctx, spaceID)
	if errors.Is(err, repository.ErrNotFound) {
		return pricing.Quote{}, newError(ErrNotFound, "space not found")
	}
	if err != nil {
		return pricing.Quote{}, err
	}
	return pricing.NewQuote(sp.Rates, start, end, partnerPickup), nil
}

// Create books a space for a seeker.  The conflict scan and the insert run
// under the space lock, so of two concurrent overlapping requests exactly
// one succeeds and the other fails with ErrConflict.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (*model.Booking, error) {
	if in.SeekerID == 0 {
		return nil, newError(ErrValidation, "seeker_id is required")
	}
	if in.SpaceID == 0 {
		return nil, newError(ErrValidation, "space_id is required")
	}
	start, end, err := validateRange(in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}
	if in.TotalAmountCents != nil && *in.TotalAmountCents < 0 {
		return nil, newError(ErrValidation, "total_amount_cents must not be negative")
	}
	if err := s.checkSeeker(ctx, in.SeekerID); err != nil {
		return nil, err
	}

	var (
		booking *model.Booking
		space   model.Space
	)
	err = s.locker.WithSpaceLock(ctx, in.SpaceID, func(ctx context.Context, tx repository.SpaceTx) error {
		sp := tx.Space()
		space = *sp
		if !sp.Bookable() {
			return newError(ErrSpaceUnavailable, "space is not available for booking")
		}
		existing, err := tx.ActiveBookings(ctx)
		if err != nil {
			return err
		}
		if ids := conflicts(existing, start, end); len(ids) > 0 {
			e := newError(ErrConflict, "space is already booked for the selected dates")
			e.BookingIDs = ids
			return e
		}
		amount := pricing.Base(sp.Rates, start, end)
		if in.TotalAmountCents != nil {
			amount = *in.TotalAmountCents
		}
		now := s.now()
		b := &model.Booking{
			SeekerID:         in.SeekerID,
			SpaceID:          in.SpaceID,
			StartDate:        start,
			EndDate:          end,
			TotalAmountCents: amount,
			Status:           model.BookingStatusPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(ErrNotFound, "space not found")
	}
	if err != nil {
		var de *Error
		if errors.As(err, &de) && errors.Is(err, ErrConflict) {
			utils.Logger.WithFields(logrus.Fields{
				"space_id":    in.SpaceID,
				"seeker_id":   in.SeekerID,
				"conflicting": de.BookingIDs,
			}).Info("booking rejected: date conflict")
		}
		return nil, err
	}

	s.publish(ctx, bookingEvent(queue.EventBookingCreated, booking, &space, ""))
	return booking, nil
}

func (s *BookingService) checkSeeker(ctx context.Context, seekerID uint64) error {
	if s.users == nil {
		return nil
	}
	u, err := s.users.GetUserByID(ctx, seekerID)
	if errors.Is(err, repository.ErrNotFound) {
		return newError(ErrNotFound, "seeker not found")
	}
	if err != nil {
		return err
	}
	if u.Role != model.RoleSeeker {
		return newError(ErrUnauthorized, "seeker not found")
	}
	if u.AccountStatus != model.AccountStatusActive {
		return newError(ErrValidation, "account is not active")
	}
	return nil
}

// load fetches a booking and its space and checks that actor may act on
// it.  Missing and foreign bookings are indistinguishable to the caller.
func (s *BookingService) load(ctx context.Context, actor Actor, bookingID uint64) (*model.Booking, *model.Space, error) {
	if bookingID == 0 {
		return nil, nil, newError(ErrValidation, "booking id is required")
	}
	b, err := s.bookings.GetBooking(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, newError(ErrNotFound, "booking not found")
	}
	if err != nil {
		return nil, nil, err
	}
	sp, err := s.spaces.GetSpace(ctx, b.SpaceID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, err
	}
	if !canActOn(actor, b, sp) {
		return nil, nil, newError(ErrUnauthorized, "booking not found or unauthorized")
	}
	return b, sp, nil
}

func canActOn(actor Actor, b *model.Booking, sp *model.Space) bool {
	switch {
	case actor.System:
		return true
	case actor.Role == model.RoleSeeker:
		return actor.ID != 0 && actor.ID == b.SeekerID
	case actor.Role == model.RoleProvider:
		return sp != nil && actor.ID != 0 && actor.ID == sp.ProviderID
	}
	return false
}

// Get returns a booking visible to actor.
func (s *BookingService) Get(ctx context.Context, actor Actor, bookingID uint64) (*model.Booking, error) {
	b, _, err := s.load(ctx, actor, bookingID)
	return b, err
}

// Transition moves a booking to next.  Only the state machine's edges are
// accepted, and the write is rejected when another request changed the
// status since it was read.
func (s *BookingService) Transition(ctx context.Context, actor Actor, bookingID uint64, next model.BookingStatus) (*model.Booking, error) {
	if _, ok := model.ParseBookingStatus(string(next)); !ok {
		return nil, newError(ErrValidation, "invalid status %q", next)
	}
	b, sp, err := s.load(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	prev := b.Status
	if !prev.CanTransition(next) {
		return nil, newError(ErrInvalidTransition, "cannot change booking status from %s to %s", prev, next)
	}
	if err := s.bookings.UpdateBookingStatus(ctx, b.ID, prev, next); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, newError(ErrConflict, "booking status was changed by another request")
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "booking not found")
		}
		return nil, err
	}
	b.Status = next
	b.UpdatedAt = s.now()

	s.publish(ctx, bookingEvent(queue.EventBookingStatusChanged, b, sp, prev))
	return b, nil
}

// Cancel is Transition to Cancelled.
func (s *BookingService) Cancel(ctx context.Context, actor Actor, bookingID uint64) (*model.Booking, error) {
	return s.Transition(ctx, actor, bookingID, model.BookingStatusCancelled)
}

// ListForSeeker returns the seeker's bookings.  Only the seeker may list
// them.
func (s *BookingService) ListForSeeker(ctx context.Context, actor Actor, seekerID uint64) ([]model.BookingDetail, error) {
	if !actor.System && (actor.Role != model.RoleSeeker || actor.ID != seekerID) {
		return nil, newError(ErrUnauthorized, "seeker not found")
	}
	return s.bookings.ListBookingsBySeeker(ctx, seekerID)
}

// ListForProvider returns bookings on the provider's spaces.
func (s *BookingService) ListForProvider(ctx context.Context, actor Actor, providerID uint64) ([]model.BookingDetail, error) {
	if !actor.System && (actor.Role != model.RoleProvider || actor.ID != providerID) {
		return nil, newError(ErrUnauthorized, "provider not found")
	}
	return s.bookings.ListBookingsByProvider(ctx, providerID)
}

// SeekerStatistics returns dashboard counters for the seeker.
func (s *BookingService) SeekerStatistics(ctx context.Context, actor Actor, seekerID uint64) (model.SeekerStats, error) {
	if !actor.System && (actor.Role != model.RoleSeeker || actor.ID != seekerID) {
		return model.SeekerStats{}, newError(ErrUnauthorized, "seeker not found")
	}
	return s.bookings.SeekerStatistics(ctx, seekerID)
}

// ProviderStatistics returns dashboard counters for the provider.
func (s *BookingService) ProviderStatistics(ctx context.Context, actor Actor, providerID uint64) (model.ProviderStats, error) {
	if !actor.System && (actor.Role != model.RoleProvider || actor.ID != providerID) {
		return model.ProviderStats{}, newError(ErrUnauthorized, "provider not found")
	}
	return s.spaces.ProviderStatistics(ctx, providerID)
}

// SweepResult counts the bookings moved by one SweepDue run.
type SweepResult struct {
	Activated int
	Completed int
}

// SweepDue advances Confirmed bookings whose start date has arrived to
// Active and Active bookings whose end date has passed to Completed.  Rows
// changed concurrently are skipped.
func (s *BookingService) SweepDue(ctx context.Context, now time.Time) (SweepResult, error) {
	var res SweepResult
	today := Day(now)

	due, err := s.bookings.ListBookingsForSweep(ctx, model.BookingStatusConfirmed, true, today)
	if err != nil {
		return res, err
	}
	for _, b := range due {
		if s.sweepOne(ctx, b.ID, model.BookingStatusActive) {
			res.Activated++
		}
	}

	ended, err := s.bookings.ListBookingsForSweep(ctx, model.BookingStatusActive, false, today.AddDate(0, 0, -1))
	if err != nil {
		return res, err
	}
	for _, b := range ended {
		if s.sweepOne(ctx, b.ID, model.BookingStatusCompleted) {
			res.Completed++
		}
	}
	return res, nil
}

func (s *BookingService) sweepOne(ctx context.Context, id uint64, next model.BookingStatus) bool {
	_, err := s.Transition(ctx, SystemActor, id, next)
	if err == nil {
		return true
	}
	log := utils.Logger.WithFields(logrus.Fields{"booking_id": id, "status": next})
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalidTransition) {
		log.Debug("sweep: booking changed concurrently, skipped")
	} else {
		log.WithError(err).Warn("sweep: transition failed")
	}
	return false
}

func bookingEvent(typ string, b *model.Booking, sp *model.Space, prev model.BookingStatus) queue.BookingEvent {
	ev := queue.BookingEvent{
		Type:             typ,
		BookingID:        b.ID,
		SpaceID:          b.SpaceID,
		SeekerID:         b.SeekerID,
		StartDate:        b.StartDate.Format(time.DateOnly),
		EndDate:          b.EndDate.Format(time.DateOnly),
		TotalAmountCents: b.TotalAmountCents,
		PreviousStatus:   string(prev),
		Status:           string(b.Status),
		OccurredAt:       b.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if sp != nil {
		ev.SpaceTitle = sp.Title
		ev.ProviderID = sp.ProviderID
	}
	return ev
}

// publish hands ev to the event publisher after the write has committed.
// Delivery failures never fail the request.
func (s *BookingService) publish(ctx context.Context, ev queue.BookingEvent) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.PublishBookingEvent(ctx, ev); err != nil {
		utils.Logger.WithError(err).WithField("booking_id", ev.BookingID).Warn("booking event not published")
	}
}
