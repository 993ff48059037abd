package user

import (
	"context"
	"time"
)

// Repo is the user store consumed by the auth core. Lookups return ErrNotFound
// when no row matches.
type Repo interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateRefreshToken(ctx context.Context, id int64, token *string) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	// MarkVerified stamps verified_at once; a second call yields ErrAlreadyVerified.
	MarkVerified(ctx context.Context, id int64, at time.Time) error
	UpdateProfile(ctx context.Context, id int64, p Profile) (*User, error)
	SetActivated(ctx context.Context, id int64, activated bool) error
}
