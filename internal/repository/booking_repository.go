package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/siaa/storage-rental/internal/model"
)

const bookingColumns = "b.id, b.seeker_id, b.space_id, b.start_date, b.end_date, b.total_amount_cents, b.status, b.created_at, b.updated_at"

// activeCond selects bookings that still hold their dates.
const activeCond = "b.status NOT IN ('Cancelled','Completed')"

// BookingRepo provides access to bookings.  Inserts only happen inside
// WithSpaceLock so that they are serialized with the conflict scan.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

func scanBooking(row rowScanner, b *model.Booking, extra ...any) error {
	dest := []any{&b.ID, &b.SeekerID, &b.SpaceID, &b.StartDate, &b.EndDate, &b.TotalAmountCents, &b.Status, &b.CreatedAt, &b.UpdatedAt}
	return row.Scan(append(dest, extra...)...)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryBookings(ctx context.Context, q queryer, query string, args ...any) ([]model.Booking, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetBooking loads a booking by id.
func (r *BookingRepo) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	var b model.Booking
	row := r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings b WHERE b.id = ?", id)
	if err := scanBooking(row, &b); err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// ListActiveBookingsForSpace returns the space's bookings whose status is
// neither Cancelled nor Completed.
func (r *BookingRepo) ListActiveBookingsForSpace(ctx context.Context, spaceID uint64) ([]model.Booking, error) {
	return queryBookings(ctx, r.db,
		"SELECT "+bookingColumns+" FROM bookings b WHERE b.space_id = ? AND "+activeCond+" ORDER BY b.start_date",
		spaceID)
}

const bookingDetailSelect = `SELECT ` + bookingColumns + `,
		s.title, s.space_type, s.city, s.address, s.provider_id,
		COALESCE(NULLIF(p.business_name, ''), TRIM(CONCAT(p.first_name, ' ', p.last_name))),
		p.phone,
		TRIM(CONCAT(k.first_name, ' ', k.last_name)), k.phone, k.email
	FROM bookings b
	JOIN spaces s ON s.id = b.space_id
	JOIN users p ON p.id = s.provider_id
	JOIN users k ON k.id = b.seeker_id`

func (r *BookingRepo) listDetails(ctx context.Context, where string, arg any) ([]model.BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, bookingDetailSelect+" WHERE "+where+" ORDER BY b.created_at DESC, b.id DESC", arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BookingDetail
	for rows.Next() {
		var d model.BookingDetail
		if err := scanBooking(rows, &d.Booking,
			&d.SpaceTitle, &d.SpaceType, &d.City, &d.Address, &d.ProviderID,
			&d.ProviderName, &d.ProviderPhone,
			&d.SeekerName, &d.SeekerPhone, &d.SeekerEmail); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListBookingsBySeeker returns the seeker's bookings, newest first.
func (r *BookingRepo) ListBookingsBySeeker(ctx context.Context, seekerID uint64) ([]model.BookingDetail, error) {
	return r.listDetails(ctx, "b.seeker_id = ?", seekerID)
}

// ListBookingsByProvider returns bookings on the provider's spaces, newest
// first.
func (r *BookingRepo) ListBookingsByProvider(ctx context.Context, providerID uint64) ([]model.BookingDetail, error) {
	return r.listDetails(ctx, "s.provider_id = ?", providerID)
}

// UpdateBookingStatus moves a booking from one status to another.  The
// write only applies when the stored status still equals from; otherwise
// ErrStaleStatus (or ErrNotFound for a missing row) is returned.
func (r *BookingRepo) UpdateBookingStatus(ctx context.Context, id uint64, from, to model.BookingStatus) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE bookings SET status = ? WHERE id = ? AND status = ?", to, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var exists int
	err = r.db.QueryRowContext(ctx, "SELECT 1 FROM bookings WHERE id = ?", id).Scan(&exists)
	if err != nil {
		return notFound(err)
	}
	return ErrStaleStatus
}

// ListBookingsForSweep returns bookings in status whose start date (byStart)
// or end date is on or before day.
func (r *BookingRepo) ListBookingsForSweep(ctx context.Context, status model.BookingStatus, byStart bool, day time.Time) ([]model.Booking, error) {
	col := "b.end_date"
	if byStart {
		col = "b.start_date"
	}
	return queryBookings(ctx, r.db,
		"SELECT "+bookingColumns+" FROM bookings b WHERE b.status = ? AND "+col+" <= ? ORDER BY b.id",
		status, day.Format(time.DateOnly))
}

// SeekerStatistics aggregates the seeker's bookings.  Cancelled bookings do
// not count as spent.
func (r *BookingRepo) SeekerStatistics(ctx context.Context, seekerID uint64) (model.SeekerStats, error) {
	var st model.SeekerStats
	err := r.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(status = 'Active'), 0),
			COALESCE(SUM(status = 'Pending'), 0),
			COALESCE(SUM(status = 'Completed'), 0),
			COALESCE(SUM(CASE WHEN status <> 'Cancelled' THEN total_amount_cents ELSE 0 END), 0)
		FROM bookings WHERE seeker_id = ?`, seekerID).
		Scan(&st.TotalBookings, &st.ActiveBookings, &st.PendingBookings, &st.CompletedBookings, &st.TotalSpentCents)
	return st, err
}

// spaceTx implements SpaceTx over a *sql.Tx that holds the space row lock.
type spaceTx struct {
	tx    *sql.Tx
	space model.Space
}

func (t *spaceTx) Space() *model.Space {
	cp := t.space
	return &cp
}

func (t *spaceTx) ActiveBookings(ctx context.Context) ([]model.Booking, error) {
	return queryBookings(ctx, t.tx,
		"SELECT "+bookingColumns+" FROM bookings b WHERE b.space_id = ? AND "+activeCond+" ORDER BY b.start_date",
		t.space.ID)
}

func (t *spaceTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (seeker_id, space_id, start_date, end_date, total_amount_cents, status)
		VALUES (?, ?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q,
		b.SeekerID, t.space.ID, b.StartDate.Format(time.DateOnly), b.EndDate.Format(time.DateOnly),
		b.TotalAmountCents, b.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.SpaceID = t.space.ID
	return t.tx.QueryRowContext(ctx, "SELECT created_at, updated_at FROM bookings WHERE id = ?", b.ID).
		Scan(&b.CreatedAt, &b.UpdatedAt)
}

// WithSpaceLock opens a transaction, locks the space row with
// SELECT ... FOR UPDATE and runs fn.  Concurrent callers for the same space
// block on the row lock until the holder commits or rolls back, so the
// conflict scan inside fn always sees every committed booking.
func (r *BookingRepo) WithSpaceLock(ctx context.Context, spaceID uint64, fn func(ctx context.Context, tx SpaceTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var sp model.Space
	row := tx.QueryRowContext(ctx, "SELECT "+spaceColumns+" FROM spaces s WHERE s.id = ? FOR UPDATE", spaceID)
	if err := scanSpace(row, &sp); err != nil {
		return notFound(err)
	}
	if err := fn(ctx, &spaceTx{tx: tx, space: sp}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
