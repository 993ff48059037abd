package auth

// Purpose discriminates token kinds so a token minted for one flow is never
// accepted by another.
type Purpose string

const (
	PurposeAccess        Purpose = "access"
	PurposeRefresh       Purpose = "refresh"
	PurposeVerifyEmail   Purpose = "verify-email"
	PurposeResetPassword Purpose = "reset-password"
)

// AccessClaims is the identity carried by an access token.
type AccessClaims struct {
	Sub  string `json:"sub"` // email
	ID   int64  `json:"id"`
	Role string `json:"role"`
}

// TokenPair is handed back to the client on sign-in and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
