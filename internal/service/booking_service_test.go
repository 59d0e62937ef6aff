package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siaa/storage-rental/internal/model"
	"github.com/siaa/storage-rental/internal/queue"
	"github.com/siaa/storage-rental/internal/repository/memory"
)

type fixture struct {
	store    *memory.Store
	bookings *BookingService
	reviews  *ReviewService
	spaces   *SpaceService
	events   *recordingPublisher
	seeker   Actor
	other    Actor
	provider Actor
	space    *model.Space
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	err    error
}

func (p *recordingPublisher) PublishBookingEvent(_ context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func cents(v int64) *int64 { return &v }

func addUser(t *testing.T, s *memory.Store, email string, role model.Role) Actor {
	t.Helper()
	u := &model.User{
		Email:         email,
		PasswordHash:  "x",
		Role:          role,
		FirstName:     "Test",
		LastName:      string(role),
		AccountStatus: model.AccountStatusActive,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return Actor{ID: u.ID, Role: role}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	f := &fixture{store: store, events: &recordingPublisher{}}
	f.seeker = addUser(t, store, "seeker@example.com", model.RoleSeeker)
	f.other = addUser(t, store, "other@example.com", model.RoleSeeker)
	f.provider = addUser(t, store, "provider@example.com", model.RoleProvider)

	f.bookings = NewBookingService(store, store, store, store, f.events)
	f.reviews = NewReviewService(store, store)
	f.spaces = NewSpaceService(store)

	sp, err := f.spaces.Create(ctx, f.provider, SpaceInput{
		Title:     "Garage in Olaya",
		SpaceType: "Garage",
		SizeSqm:   18,
		City:      "Riyadh",
		Address:   "Olaya St",
		Rates:     model.Rates{PerDayCents: cents(5000)},
	})
	require.NoError(t, err)
	f.space = sp
	return f
}

func (f *fixture) book(t *testing.T, start, end time.Time) *model.Booking {
	t.Helper()
	b, err := f.bookings.Create(context.Background(), CreateBookingInput{
		SeekerID:  f.seeker.ID,
		SpaceID:   f.space.ID,
		StartDate: start,
		EndDate:   end,
	})
	require.NoError(t, err)
	return b
}

func TestCreatePricesFromRates(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, day(2025, 3, 1), day(2025, 3, 11))

	assert.Equal(t, model.BookingStatusPending, b.Status)
	assert.Equal(t, int64(10*5000), b.TotalAmountCents)
	assert.NotZero(t, b.ID)
	assert.Equal(t, []string{queue.EventBookingCreated}, f.events.types())
	assert.Equal(t, f.provider.ID, f.events.events[0].ProviderID)
}

func TestCreateStoresExplicitAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.bookings.Create(ctx, CreateBookingInput{
		SeekerID:         f.seeker.ID,
		SpaceID:          f.space.ID,
		StartDate:        day(2025, 3, 1),
		EndDate:          day(2025, 3, 11),
		TotalAmountCents: cents(12345),
	})
	require.NoError(t, err)

	got, err := f.bookings.Get(ctx, f.seeker, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), got.TotalAmountCents)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := []CreateBookingInput{
		{SpaceID: f.space.ID, StartDate: day(2025, 3, 1), EndDate: day(2025, 3, 2)},
		{SeekerID: f.seeker.ID, StartDate: day(2025, 3, 1), EndDate: day(2025, 3, 2)},
		{SeekerID: f.seeker.ID, SpaceID: f.space.ID, EndDate: day(2025, 3, 2)},
		{SeekerID: f.seeker.ID, SpaceID: f.space.ID, StartDate: day(2025, 3, 5), EndDate: day(2025, 3, 2)},
		{SeekerID: f.seeker.ID, SpaceID: f.space.ID, StartDate: day(2025, 3, 1), EndDate: day(2025, 3, 2), TotalAmountCents: cents(-1)},
	}
	for _, in := range cases {
		_, err := f.bookings.Create(ctx, in)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestCreateUnknownSpace(t *testing.T) {
	f := newFixture(t)
	_, err := f.bookings.Create(context.Background(), CreateBookingInput{
		SeekerID: f.seeker.ID, SpaceID: 9999, StartDate: day(2025, 3, 1), EndDate: day(2025, 3, 2),
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRejectsProviderAsSeeker(t *testing.T) {
	f := newFixture(t)
	_, err := f.bookings.Create(context.Background(), CreateBookingInput{
		SeekerID: f.provider.ID, SpaceID: f.space.ID, StartDate: day(2025, 3, 1), EndDate: day(2025, 3, 2),
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreateSpaceUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inactive := model.SpaceStatusInactive
	_, err := f.spaces.Update(ctx, f.provider, f.space.ID, SpaceInput{
		Title: f.space.Title, SpaceType: f.space.SpaceType, SizeSqm: f.space.SizeSqm,
		City: f.space.City, Rates: f.space.Rates, Status: &inactive,
	})
	require.NoError(t, err)

	_, err = f.bookings.Create(ctx, CreateBookingInput{
		SeekerID: f.seeker.ID, SpaceID: f.space.ID, StartDate: day(2025, 3, 1), EndDate: day(2025, 3, 2),
	})
	assert.ErrorIs(t, err, ErrSpaceUnavailable)

	av, err := f.bookings.CheckAvailability(ctx, f.space.ID, day(2025, 3, 1), day(2025, 3, 2))
	require.NoError(t, err)
	assert.False(t, av.Available)
	assert.Equal(t, ReasonSpaceUnavailable, av.Reason)
}

func TestAvailabilityOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing := f.book(t, day(2025, 3, 1), day(2025, 3, 10))

	av, err := f.bookings.CheckAvailability(ctx, f.space.ID, day(2025, 3, 5), day(2025, 3, 15))
	require.NoError(t, err)
	assert.False(t, av.Available)
	assert.Equal(t, ReasonDateConflict, av.Reason)
	assert.Equal(t, []uint64{existing.ID}, av.ConflictingBookingIDs)

	av, err = f.bookings.CheckAvailability(ctx, f.space.ID, day(2025, 3, 11), day(2025, 3, 20))
	require.NoError(t, err)
	assert.True(t, av.Available, "adjacent range is free")

	av, err = f.bookings.CheckAvailability(ctx, f.space.ID, day(2025, 3, 10), day(2025, 3, 10))
	require.NoError(t, err)
	assert.False(t, av.Available, "inclusive end day is taken")

	_, err = f.bookings.Create(ctx, CreateBookingInput{
		SeekerID: f.other.ID, SpaceID: f.space.ID, StartDate: day(2025, 3, 5), EndDate: day(2025, 3, 15),
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAvailabilityIgnoresCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, day(2025, 3, 1), day(2025, 3, 10))
	_, err := f.bookings.Cancel(ctx, f.seeker, b.ID)
	require.NoError(t, err)

	av, err := f.bookings.CheckAvailability(ctx, f.space.ID, day(2025, 3, 5), day(2025, 3, 15))
	require.NoError(t, err)
	assert.True(t, av.Available)

	_, err = f.bookings.Create(ctx, CreateBookingInput{
		SeekerID: f.other.ID, SpaceID: f.space.ID, StartDate: day(2025, 3, 5), EndDate: day(2025, 3, 15),
	})
	assert.NoError(t, err)
}

func TestAvailabilityInvalidRange(t *testing.T) {
	f := newFixture(t)
	_, err := f.bookings.CheckAvailability(context.Background(), f.space.ID, day(2025, 3, 5), day(2025, 3, 1))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.bookings.CheckAvailability(context.Background(), 404, day(2025, 3, 1), day(2025, 3, 5))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentOverlappingCreates(t *testing.T) {
	for round := 0; round < 20; round++ {
		f := newFixture(t)
		ctx := context.Background()

		var (
			wg      sync.WaitGroup
			start   = make(chan struct{})
			results = make([]error, 2)
		)
		seekers := []Actor{f.seeker, f.other}
		for i := range seekers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, results[i] = f.bookings.Create(ctx, CreateBookingInput{
					SeekerID:  seekers[i].ID,
					SpaceID:   f.space.ID,
					StartDate: day(2025, 3, 1+i),
					EndDate:   day(2025, 3, 10+i),
				})
			}(i)
		}
		close(start)
		wg.Wait()

		var ok, conflict int
		for _, err := range results {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrConflict):
				conflict++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		require.Equal(t, 1, ok)
		require.Equal(t, 1, conflict)

		active, err := f.store.ListActiveBookingsForSpace(ctx, f.space.ID)
		require.NoError(t, err)
		require.Len(t, active, 1)
	}
}

func TestTransitionLegality(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, day(2025, 3, 1), day(2025, 3, 10))

	for _, next := range []model.BookingStatus{model.BookingStatusConfirmed, model.BookingStatusActive, model.BookingStatusCompleted} {
		got, err := f.bookings.Transition(ctx, f.provider, b.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, got.Status)
	}

	_, err := f.bookings.Transition(ctx, f.provider, b.ID, model.BookingStatusActive)
	assert.ErrorIs(t, err, ErrInvalidTransition, "Completed -> Active")

	_, err = f.bookings.Cancel(ctx, f.seeker, b.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition, "terminal booking cannot be cancelled")

	assert.Equal(t, []string{
		queue.EventBookingCreated,
		queue.EventBookingStatusChanged,
		queue.EventBookingStatusChanged,
		queue.EventBookingStatusChanged,
	}, f.events.types())
}

func TestTransitionPendingToCancelled(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, day(2025, 3, 1), day(2025, 3, 10))
	got, err := f.bookings.Transition(context.Background(), f.seeker, b.ID, model.BookingStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, got.Status)
}

func TestTransitionSkipsStepRejected(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, day(2025, 3, 1), day(2025, 3, 10))
	_, err := f.bookings.Transition(context.Background(), f.provider, b.ID, model.BookingStatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.bookings.Transition(context.Background(), f.provider, b.ID, model.BookingStatus("Archived"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransitionOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, day(2025, 3, 1), day(2025, 3, 10))

	_, err := f.bookings.Cancel(ctx, f.other, b.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	otherProvider := addUser(t, f.store, "p2@example.com", model.RoleProvider)
	_, err = f.bookings.Transition(ctx, otherProvider, b.ID, model.BookingStatusConfirmed)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.bookings.Get(ctx, f.other, b.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.bookings.Cancel(ctx, f.seeker, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")
	b := f.book(t, day(2025, 3, 1), day(2025, 3, 10))
	assert.NotZero(t, b.ID)
}

func TestListingsAndStatistics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b1 := f.book(t, day(2025, 3, 1), day(2025, 3, 2)) // 1 day
	b2 := f.book(t, day(2025, 4, 1), day(2025, 4, 1)) // 1 day
	_ = f.book(t, day(2025, 5, 1), day(2025, 5, 3))   // 2 days
	_, err := f.bookings.Cancel(ctx, f.seeker, b2.ID)
	require.NoError(t, err)
	for _, st := range []model.BookingStatus{model.BookingStatusConfirmed, model.BookingStatusActive} {
		_, err = f.bookings.Transition(ctx, f.provider, b1.ID, st)
		require.NoError(t, err)
	}

	list, err := f.bookings.ListForSeeker(ctx, f.seeker, f.seeker.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, f.space.Title, list[0].SpaceTitle)

	_, err = f.bookings.ListForSeeker(ctx, f.other, f.seeker.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	plist, err := f.bookings.ListForProvider(ctx, f.provider, f.provider.ID)
	require.NoError(t, err)
	assert.Len(t, plist, 3)

	st, err := f.bookings.SeekerStatistics(ctx, f.seeker, f.seeker.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.TotalBookings)
	assert.Equal(t, int64(1), st.ActiveBookings)
	assert.Equal(t, int64(1), st.PendingBookings)
	assert.Equal(t, int64(5000+10000), st.TotalSpentCents, "cancelled booking not counted")

	ps, err := f.bookings.ProviderStatistics(ctx, f.provider, f.provider.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ps.TotalSpaces)
	assert.Equal(t, int64(1), ps.ActiveSpaces)
	assert.Equal(t, int64(3), ps.TotalBookings)
	assert.Equal(t, int64(15000), ps.TotalRevenueCents)
	assert.Equal(t, int64(5000), ps.ActiveRevenueCents)

	_, err = f.bookings.ProviderStatistics(ctx, f.seeker, f.provider.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestQuote(t *testing.T) {
	f := newFixture(t)
	q, err := f.bookings.Quote(context.Background(), f.space.ID, day(2025, 3, 1), day(2025, 3, 3), true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), q.Days)
	assert.Equal(t, int64(10000), q.BaseCents)
	assert.Equal(t, int64(10000+1500+500+700), q.TotalCents)
}

func TestSweepDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	starting := f.book(t, day(2025, 3, 1), day(2025, 3, 10))
	ended := f.book(t, day(2025, 2, 1), day(2025, 2, 20))
	pending := f.book(t, day(2025, 2, 21), day(2025, 2, 25))

	_, err := f.bookings.Transition(ctx, f.provider, starting.ID, model.BookingStatusConfirmed)
	require.NoError(t, err)
	for _, st := range []model.BookingStatus{model.BookingStatusConfirmed, model.BookingStatusActive} {
		_, err = f.bookings.Transition(ctx, f.provider, ended.ID, st)
		require.NoError(t, err)
	}

	res, err := f.bookings.SweepDue(ctx, day(2025, 3, 1).Add(9*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Activated: 1, Completed: 1}, res)

	got, err := f.bookings.Get(ctx, f.seeker, starting.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusActive, got.Status)

	got, err = f.bookings.Get(ctx, f.seeker, ended.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, got.Status)

	got, err = f.bookings.Get(ctx, f.seeker, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, got.Status, "sweep never confirms")

	res, err = f.bookings.SweepDue(ctx, day(2025, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, res)
}
