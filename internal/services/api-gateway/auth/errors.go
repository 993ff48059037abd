package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrNotVerified        = errors.New("Account not verified")
	ErrNotActivated       = errors.New("Account not activated, contact support")
	ErrUnauthorized       = errors.New("Unauthorized")
	ErrEmailExists        = errors.New("User already exists")
	ErrUserNotFound       = errors.New("User not found")
	ErrInvalidToken       = errors.New("Invalid token")
	ErrAlreadyVerified    = errors.New("User already verified")
	ErrForbidden          = errors.New("Forbidden")
)
