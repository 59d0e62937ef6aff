package repository

import (
	"context"
	"strings"

	"github.com/siaa/storage-rental/internal/model"
)

// SearchSpaces lists bookable spaces matching q, newest first, together
// with provider name and rating aggregates.  It returns one page and the
// total number of matches.
func (r *SpaceRepo) SearchSpaces(ctx context.Context, q model.SpaceSearch) ([]model.SpaceSummary, int64, error) {
	where := []string{"s.is_available = 1", "s.status = 'Active'"}
	args := []any{}

	if q.Term != "" {
		where = append(where, "(LOWER(s.title) LIKE ? OR LOWER(s.description) LIKE ? OR LOWER(s.city) LIKE ? OR LOWER(s.space_type) LIKE ?)")
		like := "%" + strings.ToLower(q.Term) + "%"
		args = append(args, like, like, like, like)
	}
	if q.SpaceType != "" {
		where = append(where, "LOWER(s.space_type) = ?")
		args = append(args, strings.ToLower(q.SpaceType))
	}
	if q.City != "" {
		where = append(where, "LOWER(s.city) = ?")
		args = append(args, strings.ToLower(q.City))
	}
	if q.MinMonthCents > 0 {
		where = append(where, "s.price_per_month_cents >= ?")
		args = append(args, q.MinMonthCents)
	}
	if q.MaxMonthCents > 0 {
		where = append(where, "s.price_per_month_cents <= ?")
		args = append(args, q.MaxMonthCents)
	}
	if q.MinSizeSqm > 0 {
		where = append(where, "s.size_sqm >= ?")
		args = append(args, q.MinSizeSqm)
	}
	if q.MaxSizeSqm > 0 {
		where = append(where, "s.size_sqm <= ?")
		args = append(args, q.MaxSizeSqm)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM spaces s WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize
	if offset < 0 {
		offset = 0
	}

	dataSQL := `SELECT ` + spaceColumns + `,
			COALESCE(NULLIF(u.business_name, ''), TRIM(CONCAT(u.first_name, ' ', u.last_name))) AS provider_name,
			COALESCE(rv.avg_rating, 0) AS average_rating,
			COALESCE(rv.review_count, 0) AS review_count
		FROM spaces s
		JOIN users u ON u.id = s.provider_id
		LEFT JOIN (
			SELECT b.space_id, AVG(r.rating) AS avg_rating, COUNT(*) AS review_count
			FROM reviews r
			JOIN bookings b ON b.id = r.booking_id
			GROUP BY b.space_id
		) rv ON rv.space_id = s.id
		WHERE ` + cond + `
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT ? OFFSET ?`

	argsData := append(append([]any{}, args...), limit, offset)
	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.SpaceSummary, 0, limit)
	for rows.Next() {
		var d model.SpaceSummary
		if err := scanSpace(rows, &d.Space, &d.ProviderName, &d.AverageRating, &d.ReviewCount); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
