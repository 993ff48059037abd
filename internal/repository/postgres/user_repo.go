package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/crewcruise/internal/domain/user"
	"github.com/jackc/pgx/v5"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, email, names, position, role, password_hash, verified_at, activated, refresh_token, created_at, updated_at`

const (
	qUserInsert = `
INSERT INTO users (email, names, position, role, password_hash)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns + `;`

	qUserByID = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1;`

	qUserByEmail = `
SELECT ` + userColumns + `
FROM users
WHERE email = $1;`

	qUserSetRefresh = `
UPDATE users
SET refresh_token = $2,
    updated_at    = NOW()
WHERE id = $1;`

	qUserSetPassword = `
UPDATE users
SET password_hash = $2,
    updated_at    = NOW()
WHERE id = $1;`

	qUserMarkVerified = `
UPDATE users
SET verified_at = $2,
    updated_at  = NOW()
WHERE id = $1 AND verified_at IS NULL;`

	qUserUpdateProfile = `
UPDATE users
SET names      = COALESCE($2, names),
    position   = COALESCE($3, position),
    updated_at = NOW()
WHERE id = $1
RETURNING ` + userColumns + `;`

	qUserSetActivated = `
UPDATE users
SET activated  = $2,
    updated_at = NOW()
WHERE id = $1;`
)

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	row := eq.QueryRow(ctx, qUserInsert, u.Email, u.Names, u.Position, string(u.Role), u.PasswordHash)
	if err := scanUser(row, u); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("user insert: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserByID, id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserByEmail, email), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UpdateRefreshToken(ctx context.Context, id int64, token *string) error {
	return r.execOne(ctx, "user set refresh", qUserSetRefresh, id, token)
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return r.execOne(ctx, "user set password", qUserSetPassword, id, hash)
}

func (r *UserRepo) MarkVerified(ctx context.Context, id int64, at time.Time) error {
	err := r.execOne(ctx, "user mark verified", qUserMarkVerified, id, at)
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	// zero rows: either the user is gone or verified_at was already set
	if _, gerr := r.GetByID(ctx, id); gerr != nil {
		return gerr
	}
	return user.ErrAlreadyVerified
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id int64, p user.Profile) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	row := r.db.execQueryer(ctx).QueryRow(ctx, qUserUpdateProfile, id, p.Names, p.Position)
	if err := scanUser(row, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) SetActivated(ctx context.Context, id int64, activated bool) error {
	return r.execOne(ctx, "user set activated", qUserSetActivated, id, activated)
}

func (r *UserRepo) execOne(ctx context.Context, op, q string, args ...any) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.execQueryer(ctx).Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row, out *user.User) error {
	var role string
	if err := row.Scan(
		&out.ID,
		&out.Email,
		&out.Names,
		&out.Position,
		&role,
		&out.PasswordHash,
		&out.VerifiedAt,
		&out.Activated,
		&out.RefreshToken,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan user: %w", err)
	}
	out.Role = user.Role(role)
	return nil
}
