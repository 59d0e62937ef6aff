// Package memory is a mutex-guarded, process-local storage driver.  It
// implements the same repository ports as the MySQL driver and is selected
// with STORE_DRIVER=memory for local runs; the service and handler tests
// run against it.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/siaa/storage-rental/internal/model"
	"github.com/siaa/storage-rental/internal/repository"
)

// Store holds every table in maps keyed by id.  mu guards the maps; the
// per-space locks serialize WithSpaceLock callers for the same space the way
// SELECT ... FOR UPDATE does in MySQL.
type Store struct {
	mu sync.RWMutex

	locksMu    sync.Mutex
	spaceLocks map[uint64]*sync.Mutex

	users         map[uint64]*model.User
	emails        map[string]uint64
	tokens        map[string]*model.RefreshToken
	spaces        map[uint64]*model.Space
	bookings      map[uint64]*model.Booking
	reviews       map[uint64]*model.Review
	reviewByBkg   map[uint64]uint64
	notifications map[uint64]*model.Notification

	seq uint64
	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		spaceLocks:    map[uint64]*sync.Mutex{},
		users:         map[uint64]*model.User{},
		emails:        map[string]uint64{},
		tokens:        map[string]*model.RefreshToken{},
		spaces:        map[uint64]*model.Space{},
		bookings:      map[uint64]*model.Booking{},
		reviews:       map[uint64]*model.Review{},
		reviewByBkg:   map[uint64]uint64{},
		notifications: map[uint64]*model.Notification{},
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// nextID returns a fresh id.  Callers hold mu for writing.
func (s *Store) nextID() uint64 {
	s.seq++
	return s.seq
}

func (s *Store) spaceLock(id uint64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.spaceLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.spaceLocks[id] = l
	}
	return l
}

// ---- users ----

// CreateUser inserts u and sets its id.  Emails are unique
// case-insensitively.
func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if _, ok := s.emails[email]; ok {
		return repository.ErrEmailExists
	}
	now := s.now()
	u.ID = s.nextID()
	u.Email = email
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	s.users[u.ID] = &cp
	s.emails[email] = u.ID
	return nil
}

// GetUserByID returns a copy of the user.
func (s *Store) GetUserByID(_ context.Context, id uint64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// GetUserByEmail looks a user up by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	id, ok := s.emails[strings.ToLower(strings.TrimSpace(email))]
	s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.GetUserByID(ctx, id)
}

// UpdateUserProfile stores the profile fields of u.
func (s *Store) UpdateUserProfile(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.FirstName = u.FirstName
	cur.LastName = u.LastName
	cur.Phone = u.Phone
	cur.BusinessName = u.BusinessName
	cur.UpdatedAt = s.now()
	u.UpdatedAt = cur.UpdatedAt
	return nil
}

// ---- refresh tokens ----

// StoreRefresh records a refresh token hash.
func (s *Store) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = &model.RefreshToken{
		ID:        s.nextID(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: exp,
		CreatedAt: s.now(),
	}
	return nil
}

// ValidateRefresh returns the owner of a live token.
func (s *Store) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[tokenHash]
	if !ok || t.RevokedAt != nil || s.now().After(t.ExpiresAt) {
		return 0, repository.ErrNotFound
	}
	return t.UserID, nil
}

// ConsumeRefresh revokes a live token and returns its owner.
func (s *Store) ConsumeRefresh(_ context.Context, tokenHash string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenHash]
	now := s.now()
	if !ok || t.RevokedAt != nil || now.After(t.ExpiresAt) {
		return 0, repository.ErrNotFound
	}
	t.RevokedAt = &now
	return t.UserID, nil
}

// RevokeByHash revokes one token.  Unknown tokens are ignored.
func (s *Store) RevokeByHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := s.now()
		t.RevokedAt = &now
	}
	return nil
}

// RevokeAllForUser revokes every live token of the user.
func (s *Store) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for _, t := range s.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	return nil
}

// ---- spaces ----

// CreateSpace inserts sp and sets its id and timestamps.
func (s *Store) CreateSpace(_ context.Context, sp *model.Space) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	sp.ID = s.nextID()
	sp.CreatedAt, sp.UpdatedAt = now, now
	cp := *sp
	s.spaces[sp.ID] = &cp
	return nil
}

// UpdateSpace replaces the stored space.  It waits for any booking create
// holding the space lock, like the row lock taken by the SQL store.
func (s *Store) UpdateSpace(_ context.Context, sp *model.Space) error {
	l := s.spaceLock(sp.ID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.spaces[sp.ID]
	if !ok {
		return repository.ErrNotFound
	}
	sp.CreatedAt = cur.CreatedAt
	sp.UpdatedAt = s.now()
	cp := *sp
	s.spaces[sp.ID] = &cp
	return nil
}

// GetSpace returns a copy of the space.
func (s *Store) GetSpace(_ context.Context, id uint64) (*model.Space, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.spaces[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *sp
	return &cp, nil
}

func (s *Store) providerName(id uint64) string {
	u, ok := s.users[id]
	if !ok {
		return ""
	}
	if u.BusinessName != "" {
		return u.BusinessName
	}
	return u.FullName()
}

func matchSpace(sp *model.Space, q model.SpaceSearch) bool {
	if !sp.Bookable() {
		return false
	}
	if q.Term != "" {
		term := strings.ToLower(q.Term)
		hay := strings.ToLower(sp.Title + " " + sp.Description + " " + sp.City + " " + sp.SpaceType)
		if !strings.Contains(hay, term) {
			return false
		}
	}
	if q.SpaceType != "" && !strings.EqualFold(sp.SpaceType, q.SpaceType) {
		return false
	}
	if q.City != "" && !strings.EqualFold(sp.City, q.City) {
		return false
	}
	if q.MinMonthCents > 0 || q.MaxMonthCents > 0 {
		if sp.Rates.PerMonthCents == nil {
			return false
		}
		m := *sp.Rates.PerMonthCents
		if q.MinMonthCents > 0 && m < q.MinMonthCents {
			return false
		}
		if q.MaxMonthCents > 0 && m > q.MaxMonthCents {
			return false
		}
	}
	if q.MinSizeSqm > 0 && sp.SizeSqm < q.MinSizeSqm {
		return false
	}
	if q.MaxSizeSqm > 0 && sp.SizeSqm > q.MaxSizeSqm {
		return false
	}
	return true
}

// SearchSpaces filters bookable spaces, newest first, and returns one page
// plus the total match count.
func (s *Store) SearchSpaces(_ context.Context, q model.SpaceSearch) ([]model.SpaceSummary, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []*model.Space
	for _, sp := range s.spaces {
		if matchSpace(sp, q) {
			hits = append(hits, sp)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if !hits[i].CreatedAt.Equal(hits[j].CreatedAt) {
			return hits[i].CreatedAt.After(hits[j].CreatedAt)
		}
		return hits[i].ID > hits[j].ID
	})
	total := int64(len(hits))

	from := (q.Page - 1) * q.PageSize
	if from < 0 || q.PageSize <= 0 {
		from = 0
	}
	if from > len(hits) {
		from = len(hits)
	}
	to := len(hits)
	if q.PageSize > 0 && from+q.PageSize < to {
		to = from + q.PageSize
	}

	out := make([]model.SpaceSummary, 0, to-from)
	for _, sp := range hits[from:to] {
		sum := model.SpaceSummary{Space: *sp, ProviderName: s.providerName(sp.ProviderID)}
		var ratings int64
		for _, r := range s.reviews {
			if b, ok := s.bookings[r.BookingID]; ok && b.SpaceID == sp.ID {
				ratings += int64(r.Rating)
				sum.ReviewCount++
			}
		}
		if sum.ReviewCount > 0 {
			sum.AverageRating = float64(ratings) / float64(sum.ReviewCount)
		}
		out = append(out, sum)
	}
	return out, total, nil
}

// ListSpacesByProvider returns the provider's spaces, newest first, with
// booking counters.
func (s *Store) ListSpacesByProvider(_ context.Context, providerID uint64) ([]model.ProviderSpace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ProviderSpace
	for _, sp := range s.spaces {
		if sp.ProviderID != providerID {
			continue
		}
		ps := model.ProviderSpace{Space: *sp}
		for _, b := range s.bookings {
			if b.SpaceID != sp.ID {
				continue
			}
			ps.TotalBookings++
			if b.Status == model.BookingStatusActive {
				ps.ActiveBookings++
			}
		}
		out = append(out, ps)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// ProviderStatistics aggregates the provider's spaces and bookings.
// Cancelled bookings do not count as revenue.
func (s *Store) ProviderStatistics(_ context.Context, providerID uint64) (model.ProviderStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st model.ProviderStats
	owned := map[uint64]bool{}
	for _, sp := range s.spaces {
		if sp.ProviderID != providerID {
			continue
		}
		owned[sp.ID] = true
		st.TotalSpaces++
		switch sp.Status {
		case model.SpaceStatusActive:
			st.ActiveSpaces++
		case model.SpaceStatusPending:
			st.PendingSpaces++
		}
	}
	for _, b := range s.bookings {
		if !owned[b.SpaceID] {
			continue
		}
		st.TotalBookings++
		if b.Status != model.BookingStatusCancelled {
			st.TotalRevenueCents += b.TotalAmountCents
		}
		if b.Status == model.BookingStatusActive {
			st.ActiveRevenueCents += b.TotalAmountCents
		}
	}
	return st, nil
}

// ---- bookings ----

// GetBooking returns a copy of the booking.
func (s *Store) GetBooking(_ context.Context, id uint64) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *Store) activeForSpace(spaceID uint64) []model.Booking {
	var out []model.Booking
	for _, b := range s.bookings {
		if b.SpaceID == spaceID && b.Status.Blocking() {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

// ListActiveBookingsForSpace returns the space's bookings that still hold
// their dates.
func (s *Store) ListActiveBookingsForSpace(_ context.Context, spaceID uint64) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeForSpace(spaceID), nil
}

func (s *Store) detail(b *model.Booking) model.BookingDetail {
	d := model.BookingDetail{Booking: *b}
	if sp, ok := s.spaces[b.SpaceID]; ok {
		d.SpaceTitle = sp.Title
		d.SpaceType = sp.SpaceType
		d.City = sp.City
		d.Address = sp.Address
		d.ProviderID = sp.ProviderID
		if p, ok := s.users[sp.ProviderID]; ok {
			d.ProviderName = s.providerName(p.ID)
			d.ProviderPhone = p.Phone
		}
	}
	if u, ok := s.users[b.SeekerID]; ok {
		d.SeekerName = u.FullName()
		d.SeekerPhone = u.Phone
		d.SeekerEmail = u.Email
	}
	return d
}

func sortDetails(ds []model.BookingDetail) {
	sort.Slice(ds, func(i, j int) bool {
		if !ds[i].CreatedAt.Equal(ds[j].CreatedAt) {
			return ds[i].CreatedAt.After(ds[j].CreatedAt)
		}
		return ds[i].ID > ds[j].ID
	})
}

// ListBookingsBySeeker returns the seeker's bookings, newest first.
func (s *Store) ListBookingsBySeeker(_ context.Context, seekerID uint64) ([]model.BookingDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.BookingDetail
	for _, b := range s.bookings {
		if b.SeekerID == seekerID {
			out = append(out, s.detail(b))
		}
	}
	sortDetails(out)
	return out, nil
}

// ListBookingsByProvider returns bookings on the provider's spaces, newest
// first.
func (s *Store) ListBookingsByProvider(_ context.Context, providerID uint64) ([]model.BookingDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.BookingDetail
	for _, b := range s.bookings {
		if sp, ok := s.spaces[b.SpaceID]; ok && sp.ProviderID == providerID {
			out = append(out, s.detail(b))
		}
	}
	sortDetails(out)
	return out, nil
}

// UpdateBookingStatus is a compare-and-set on the booking status.
func (s *Store) UpdateBookingStatus(_ context.Context, id uint64, from, to model.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	if b.Status != from {
		return repository.ErrStaleStatus
	}
	b.Status = to
	b.UpdatedAt = s.now()
	return nil
}

// ListBookingsForSweep returns bookings in status whose start (byStart) or
// end date is on or before day.
func (s *Store) ListBookingsForSweep(_ context.Context, status model.BookingStatus, byStart bool, day time.Time) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Booking
	for _, b := range s.bookings {
		if b.Status != status {
			continue
		}
		d := b.EndDate
		if byStart {
			d = b.StartDate
		}
		if !d.After(day) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SeekerStatistics aggregates the seeker's bookings.  Cancelled bookings
// do not count as spent.
func (s *Store) SeekerStatistics(_ context.Context, seekerID uint64) (model.SeekerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st model.SeekerStats
	for _, b := range s.bookings {
		if b.SeekerID != seekerID {
			continue
		}
		st.TotalBookings++
		switch b.Status {
		case model.BookingStatusActive:
			st.ActiveBookings++
		case model.BookingStatusPending:
			st.PendingBookings++
		case model.BookingStatusCompleted:
			st.CompletedBookings++
		}
		if b.Status != model.BookingStatusCancelled {
			st.TotalSpentCents += b.TotalAmountCents
		}
	}
	return st, nil
}

// spaceTx is the WithSpaceLock view.  Inserts are buffered and applied
// when fn succeeds.
type spaceTx struct {
	s       *Store
	space   model.Space
	pending []*model.Booking
}

func (t *spaceTx) Space() *model.Space {
	cp := t.space
	return &cp
}

func (t *spaceTx) ActiveBookings(_ context.Context) ([]model.Booking, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	out := t.s.activeForSpace(t.space.ID)
	for _, b := range t.pending {
		out = append(out, *b)
	}
	return out, nil
}

func (t *spaceTx) InsertBooking(_ context.Context, b *model.Booking) error {
	t.s.mu.Lock()
	b.ID = t.s.nextID()
	t.s.mu.Unlock()
	b.SpaceID = t.space.ID
	t.pending = append(t.pending, b)
	return nil
}

// WithSpaceLock runs fn while holding the space's lock and applies its
// inserts only when fn returns nil.
func (s *Store) WithSpaceLock(ctx context.Context, spaceID uint64, fn func(ctx context.Context, tx repository.SpaceTx) error) error {
	l := s.spaceLock(spaceID)
	l.Lock()
	defer l.Unlock()

	sp, err := s.GetSpace(ctx, spaceID)
	if err != nil {
		return err
	}
	tx := &spaceTx{s: s, space: *sp}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range tx.pending {
		cp := *b
		s.bookings[b.ID] = &cp
	}
	return nil
}

// ---- reviews ----

// GetReview returns a copy of the review.
func (s *Store) GetReview(_ context.Context, id uint64) (*model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// GetReviewByBooking returns the review of a booking.
func (s *Store) GetReviewByBooking(ctx context.Context, bookingID uint64) (*model.Review, error) {
	s.mu.RLock()
	id, ok := s.reviewByBkg[bookingID]
	s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.GetReview(ctx, id)
}

// CreateReview inserts r, enforcing one review per booking.
func (s *Store) CreateReview(_ context.Context, r *model.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviewByBkg[r.BookingID]; ok {
		return repository.ErrDuplicate
	}
	now := s.now()
	r.ID = s.nextID()
	r.CreatedAt, r.UpdatedAt = now, now
	cp := *r
	s.reviews[r.ID] = &cp
	s.reviewByBkg[r.BookingID] = r.ID
	return nil
}

// UpdateReview stores rating and comment.
func (s *Store) UpdateReview(_ context.Context, r *model.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.reviews[r.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Rating = r.Rating
	cur.Comment = r.Comment
	cur.UpdatedAt = s.now()
	r.UpdatedAt = cur.UpdatedAt
	return nil
}

// DeleteReview removes a review.
func (s *Store) DeleteReview(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(s.reviewByBkg, r.BookingID)
	delete(s.reviews, id)
	return nil
}

func (s *Store) listReviews(keep func(r *model.Review, b *model.Booking, sp *model.Space) bool) []model.ReviewDetail {
	var out []model.ReviewDetail
	for _, r := range s.reviews {
		b, ok := s.bookings[r.BookingID]
		if !ok {
			continue
		}
		sp, ok := s.spaces[b.SpaceID]
		if !ok {
			continue
		}
		if !keep(r, b, sp) {
			continue
		}
		d := model.ReviewDetail{
			Review:        *r,
			SpaceID:       sp.ID,
			SpaceTitle:    sp.Title,
			SpaceType:     sp.SpaceType,
			BookingStatus: b.Status,
			ProviderName:  s.providerName(sp.ProviderID),
		}
		if u, ok := s.users[r.ReviewerSeekerID]; ok {
			d.ReviewerName = u.FullName()
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// ListReviewsBySpace returns the reviews of a space, newest first.
func (s *Store) ListReviewsBySpace(_ context.Context, spaceID uint64) ([]model.ReviewDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listReviews(func(_ *model.Review, _ *model.Booking, sp *model.Space) bool { return sp.ID == spaceID }), nil
}

// ListReviewsBySeeker returns the seeker's reviews, newest first.
func (s *Store) ListReviewsBySeeker(_ context.Context, seekerID uint64) ([]model.ReviewDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listReviews(func(r *model.Review, _ *model.Booking, _ *model.Space) bool { return r.ReviewerSeekerID == seekerID }), nil
}

// ListReviewsByProvider returns reviews on the provider's spaces, newest
// first.
func (s *Store) ListReviewsByProvider(_ context.Context, providerID uint64) ([]model.ReviewDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listReviews(func(_ *model.Review, _ *model.Booking, sp *model.Space) bool { return sp.ProviderID == providerID }), nil
}

// ---- notifications ----

// CreateNotification inserts n.
func (s *Store) CreateNotification(_ context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.nextID()
	n.CreatedAt = s.now()
	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

// ListNotifications returns up to limit notifications of the user, newest
// first.
func (s *Store) ListNotifications(_ context.Context, userID uint64, limit int) ([]model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkNotificationRead marks the user's notification read.
func (s *Store) MarkNotificationRead(_ context.Context, id, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotFound
	}
	n.IsRead = true
	return nil
}
