package repository

import (
	"context"
	"database/sql"

	"github.com/siaa/storage-rental/internal/model"
)

const reviewColumns = "r.id, r.booking_id, r.reviewer_seeker_id, r.rating, r.comment, r.created_at, r.updated_at"

// ReviewRepo persists reviews.  The unique index on reviews.booking_id
// guarantees at most one review per booking even under concurrent inserts.
type ReviewRepo struct {
	db *sql.DB
}

// NewReviewRepo returns a new ReviewRepo bound to the given database.
func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

func scanReview(row rowScanner, r *model.Review, extra ...any) error {
	dest := []any{&r.ID, &r.BookingID, &r.ReviewerSeekerID, &r.Rating, &r.Comment, &r.CreatedAt, &r.UpdatedAt}
	return row.Scan(append(dest, extra...)...)
}

func (rr *ReviewRepo) getOne(ctx context.Context, where string, arg any) (*model.Review, error) {
	var r model.Review
	row := rr.db.QueryRowContext(ctx, "SELECT "+reviewColumns+" FROM reviews r WHERE "+where+" LIMIT 1", arg)
	if err := scanReview(row, &r); err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

// GetReview loads a review by id.
func (rr *ReviewRepo) GetReview(ctx context.Context, id uint64) (*model.Review, error) {
	return rr.getOne(ctx, "r.id = ?", id)
}

// GetReviewByBooking loads the review of a booking.
func (rr *ReviewRepo) GetReviewByBooking(ctx context.Context, bookingID uint64) (*model.Review, error) {
	return rr.getOne(ctx, "r.booking_id = ?", bookingID)
}

// CreateReview inserts r.  A second review for the same booking fails with
// ErrDuplicate.
func (rr *ReviewRepo) CreateReview(ctx context.Context, r *model.Review) error {
	res, err := rr.db.ExecContext(ctx,
		"INSERT INTO reviews (booking_id, reviewer_seeker_id, rating, comment) VALUES (?, ?, ?, ?)",
		r.BookingID, r.ReviewerSeekerID, r.Rating, r.Comment)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = uint64(id)
	return rr.db.QueryRowContext(ctx, "SELECT created_at, updated_at FROM reviews WHERE id = ?", r.ID).
		Scan(&r.CreatedAt, &r.UpdatedAt)
}

// UpdateReview writes rating and comment.
func (rr *ReviewRepo) UpdateReview(ctx context.Context, r *model.Review) error {
	res, err := rr.db.ExecContext(ctx,
		"UPDATE reviews SET rating = ?, comment = ? WHERE id = ?", r.Rating, r.Comment, r.ID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// DeleteReview removes a review.
func (rr *ReviewRepo) DeleteReview(ctx context.Context, id uint64) error {
	res, err := rr.db.ExecContext(ctx, "DELETE FROM reviews WHERE id = ?", id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

const reviewDetailSelect = `SELECT ` + reviewColumns + `,
		s.id, s.title, s.space_type, b.status,
		TRIM(CONCAT(k.first_name, ' ', k.last_name)),
		COALESCE(NULLIF(p.business_name, ''), TRIM(CONCAT(p.first_name, ' ', p.last_name)))
	FROM reviews r
	JOIN bookings b ON b.id = r.booking_id
	JOIN spaces s ON s.id = b.space_id
	JOIN users k ON k.id = r.reviewer_seeker_id
	JOIN users p ON p.id = s.provider_id`

func (rr *ReviewRepo) listDetails(ctx context.Context, where string, arg any) ([]model.ReviewDetail, error) {
	rows, err := rr.db.QueryContext(ctx, reviewDetailSelect+" WHERE "+where+" ORDER BY r.created_at DESC, r.id DESC", arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ReviewDetail
	for rows.Next() {
		var d model.ReviewDetail
		if err := scanReview(rows, &d.Review,
			&d.SpaceID, &d.SpaceTitle, &d.SpaceType, &d.BookingStatus, &d.ReviewerName, &d.ProviderName); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListReviewsBySpace returns the reviews of a space, newest first.
func (rr *ReviewRepo) ListReviewsBySpace(ctx context.Context, spaceID uint64) ([]model.ReviewDetail, error) {
	return rr.listDetails(ctx, "s.id = ?", spaceID)
}

// ListReviewsBySeeker returns the reviews written by a seeker.
func (rr *ReviewRepo) ListReviewsBySeeker(ctx context.Context, seekerID uint64) ([]model.ReviewDetail, error) {
	return rr.listDetails(ctx, "r.reviewer_seeker_id = ?", seekerID)
}

// ListReviewsByProvider returns the reviews on a provider's spaces.
func (rr *ReviewRepo) ListReviewsByProvider(ctx context.Context, providerID uint64) ([]model.ReviewDetail, error) {
	return rr.listDetails(ctx, "s.provider_id = ?", providerID)
}
