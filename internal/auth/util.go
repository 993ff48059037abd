package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// HashToken is the form in which refresh tokens are persisted.
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(h[:])
}

// MatchTokenHash reports whether raw is the token whose hash was stored.
func MatchTokenHash(raw, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(HashToken(raw)), []byte(stored)) == 1
}
