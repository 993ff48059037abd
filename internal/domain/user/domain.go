package user

import (
	"errors"
	"time"
)

type Role string

const (
	RoleCrew  Role = "CREW"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCrew, RoleAdmin:
		return true
	}
	return false
}

var (
	ErrNotFound        = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrAlreadyVerified = errors.New("user already verified")
)

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Names        string     `json:"names"`
	Position     string     `json:"position"`
	Role         Role       `json:"role"`
	PasswordHash string     `json:"-"`
	VerifiedAt   *time.Time `json:"verifiedAt,omitempty"`
	Activated    bool       `json:"activated"`
	RefreshToken *string    `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (u *User) Verified() bool { return u.VerifiedAt != nil }

// HasSession reports whether the user currently holds a refresh token.
func (u *User) HasSession() bool { return u.RefreshToken != nil && *u.RefreshToken != "" }

// Profile is the subset of fields a user may change about themselves.
// Nil fields are left untouched.
type Profile struct {
	Names    *string
	Position *string
}
