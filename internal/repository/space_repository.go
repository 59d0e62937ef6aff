package repository

import (
	"context"
	"database/sql"

	"github.com/siaa/storage-rental/internal/model"
)

const spaceColumns = `s.id, s.provider_id, s.title, s.description, s.space_type, s.size_sqm, s.city, s.address,
	s.price_per_day_cents, s.price_per_week_cents, s.price_per_month_cents, s.is_available, s.status,
	s.created_at, s.updated_at`

// SpaceRepo provides CRUD operations and dashboard aggregates for storage
// spaces.  Rates are nullable columns in minor units.
type SpaceRepo struct {
	db *sql.DB
}

// NewSpaceRepo returns a new SpaceRepo bound to the given database.
func NewSpaceRepo(db *sql.DB) *SpaceRepo { return &SpaceRepo{db: db} }

type rowScanner interface{ Scan(...any) error }

// scanSpace reads the spaceColumns projection followed by extra.
func scanSpace(row rowScanner, sp *model.Space, extra ...any) error {
	var day, week, month sql.NullInt64
	dest := []any{
		&sp.ID, &sp.ProviderID, &sp.Title, &sp.Description, &sp.SpaceType, &sp.SizeSqm, &sp.City, &sp.Address,
		&day, &week, &month, &sp.IsAvailable, &sp.Status, &sp.CreatedAt, &sp.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	sp.Rates = model.Rates{
		PerDayCents:   nullInt(day),
		PerWeekCents:  nullInt(week),
		PerMonthCents: nullInt(month),
	}
	return nil
}

func nullInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func ptrArg(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

// GetSpace loads a space by id.
func (r *SpaceRepo) GetSpace(ctx context.Context, id uint64) (*model.Space, error) {
	var sp model.Space
	row := r.db.QueryRowContext(ctx, "SELECT "+spaceColumns+" FROM spaces s WHERE s.id = ?", id)
	if err := scanSpace(row, &sp); err != nil {
		return nil, notFound(err)
	}
	return &sp, nil
}

// CreateSpace inserts sp and reads back the generated id and timestamps.
func (r *SpaceRepo) CreateSpace(ctx context.Context, sp *model.Space) error {
	const q = `INSERT INTO spaces (provider_id, title, description, space_type, size_sqm, city, address,
		price_per_day_cents, price_per_week_cents, price_per_month_cents, is_available, status)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q,
		sp.ProviderID, sp.Title, sp.Description, sp.SpaceType, sp.SizeSqm, sp.City, sp.Address,
		ptrArg(sp.Rates.PerDayCents), ptrArg(sp.Rates.PerWeekCents), ptrArg(sp.Rates.PerMonthCents),
		sp.IsAvailable, sp.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	sp.ID = uint64(id)
	return r.db.QueryRowContext(ctx, "SELECT created_at, updated_at FROM spaces WHERE id = ?", sp.ID).
		Scan(&sp.CreatedAt, &sp.UpdatedAt)
}

// UpdateSpace writes every editable column of sp.
func (r *SpaceRepo) UpdateSpace(ctx context.Context, sp *model.Space) error {
	const q = `UPDATE spaces SET title=?, description=?, space_type=?, size_sqm=?, city=?, address=?,
		price_per_day_cents=?, price_per_week_cents=?, price_per_month_cents=?, is_available=?, status=?
		WHERE id=?`
	res, err := r.db.ExecContext(ctx, q,
		sp.Title, sp.Description, sp.SpaceType, sp.SizeSqm, sp.City, sp.Address,
		ptrArg(sp.Rates.PerDayCents), ptrArg(sp.Rates.PerWeekCents), ptrArg(sp.Rates.PerMonthCents),
		sp.IsAvailable, sp.Status, sp.ID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// ListSpacesByProvider returns the provider's spaces, newest first, with
// total and Active booking counts.
func (r *SpaceRepo) ListSpacesByProvider(ctx context.Context, providerID uint64) ([]model.ProviderSpace, error) {
	q := `SELECT ` + spaceColumns + `,
			(SELECT COUNT(*) FROM bookings b WHERE b.space_id = s.id) AS total_bookings,
			(SELECT COUNT(*) FROM bookings b WHERE b.space_id = s.id AND b.status = 'Active') AS active_bookings
		FROM spaces s
		WHERE s.provider_id = ?
		ORDER BY s.created_at DESC, s.id DESC`
	rows, err := r.db.QueryContext(ctx, q, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ProviderSpace
	for rows.Next() {
		var ps model.ProviderSpace
		if err := scanSpace(rows, &ps.Space, &ps.TotalBookings, &ps.ActiveBookings); err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

// ProviderStatistics aggregates the provider's spaces and the bookings on
// them.  Cancelled bookings do not count as revenue.
func (r *SpaceRepo) ProviderStatistics(ctx context.Context, providerID uint64) (model.ProviderStats, error) {
	var st model.ProviderStats
	err := r.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(status = 'Active'), 0),
			COALESCE(SUM(status = 'Pending'), 0)
		FROM spaces WHERE provider_id = ?`, providerID).
		Scan(&st.TotalSpaces, &st.ActiveSpaces, &st.PendingSpaces)
	if err != nil {
		return st, err
	}
	err = r.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN b.status <> 'Cancelled' THEN b.total_amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN b.status = 'Active' THEN b.total_amount_cents ELSE 0 END), 0)
		FROM bookings b
		JOIN spaces s ON s.id = b.space_id
		WHERE s.provider_id = ?`, providerID).
		Scan(&st.TotalBookings, &st.TotalRevenueCents, &st.ActiveRevenueCents)
	return st, err
}
