package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/siaa/storage-rental/internal/model"
)

const userColumns = "id,email,password_hash,role,first_name,last_name,phone,business_name,account_status,is_verified,created_at,updated_at"

// UserRepo persists seeker and provider accounts in the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.FirstName, &u.LastName,
		&u.Phone, &u.BusinessName, &u.AccountStatus, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// CreateUser inserts u with a normalized email and sets its id.  The
// password must already be hashed.
func (r *UserRepo) CreateUser(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.AccountStatus == "" {
		u.AccountStatus = model.AccountStatusActive
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, role, first_name, last_name, phone, business_name, account_status)
		 VALUES (?,?,?,?,?,?,?,?)`,
		u.Email, u.PasswordHash, u.Role, u.FirstName, u.LastName, u.Phone, u.BusinessName, u.AccountStatus)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetUserByEmail fetches a user by normalized email.
func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetUserByID fetches a user by id.
func (r *UserRepo) GetUserByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// UpdateUserProfile writes the editable profile fields.
func (r *UserRepo) UpdateUserProfile(ctx context.Context, u *model.User) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET first_name=?, last_name=?, phone=?, business_name=? WHERE id=?",
		u.FirstName, u.LastName, u.Phone, u.BusinessName, u.ID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// expectOne returns ErrNotFound when an UPDATE or DELETE matched no row.
// MySQL reports matched rows because the DSN sets clientFoundRows.
func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
