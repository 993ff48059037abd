package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	domainauth "github.com/NordCoder/crewcruise/internal/domain/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultIssuer = "crew-api"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenConfig  = errors.New("token service misconfigured")
)

type Claims struct {
	jwt.RegisteredClaims
	UserID  int64              `json:"id,omitempty"`
	Email   string             `json:"email,omitempty"`
	Role    string             `json:"role,omitempty"`
	Purpose domainauth.Purpose `json:"purpose"`
}

type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	// ActionSecret signs verify/reset tokens. Empty means AccessSecret.
	ActionSecret []byte
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	ActionTTL    time.Duration
	Issuer       string
	Now          func() time.Time
}

type TokenService struct {
	cfg TokenConfig
}

func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, fmt.Errorf("%w: access secret is empty", ErrTokenConfig)
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, fmt.Errorf("%w: refresh secret is empty", ErrTokenConfig)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.ActionTTL <= 0 {
		return nil, fmt.Errorf("%w: token lifetimes must be positive", ErrTokenConfig)
	}
	if len(cfg.ActionSecret) == 0 {
		cfg.ActionSecret = cfg.AccessSecret
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &TokenService{cfg: cfg}, nil
}

func (s *TokenService) AccessTTL() time.Duration  { return s.cfg.AccessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }

func (s *TokenService) IssueAccessToken(c domainauth.AccessClaims) (string, error) {
	return s.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: c.Sub, Issuer: s.cfg.Issuer},
		UserID:           c.ID,
		Role:             c.Role,
		Purpose:          domainauth.PurposeAccess,
	}, s.cfg.AccessTTL, s.cfg.AccessSecret)
}

func (s *TokenService) IssueRefreshToken(userID int64) (string, error) {
	return s.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: strconv.FormatInt(userID, 10)},
		Purpose:          domainauth.PurposeRefresh,
	}, s.cfg.RefreshTTL, s.cfg.RefreshSecret)
}

func (s *TokenService) IssueActionToken(email string, purpose domainauth.Purpose) (string, error) {
	if purpose != domainauth.PurposeVerifyEmail && purpose != domainauth.PurposeResetPassword {
		return "", fmt.Errorf("issue action token: unsupported purpose %q", purpose)
	}
	return s.sign(Claims{
		Email:   email,
		Purpose: purpose,
	}, s.cfg.ActionTTL, s.cfg.ActionSecret)
}

func (s *TokenService) sign(c Claims, ttl time.Duration, secret []byte) (string, error) {
	now := s.cfg.Now()
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	c.RegisteredClaims.ID = uuid.NewString()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", c.Purpose, err)
	}
	return signed, nil
}

// Decode verifies signature, expiry and purpose. Every failure wraps
// ErrInvalidToken.
func (s *TokenService) Decode(token string, purpose domainauth.Purpose) (*Claims, error) {
	secret, ok := s.secretFor(purpose)
	if !ok {
		return nil, fmt.Errorf("%w: unknown purpose %q", ErrInvalidToken, purpose)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.cfg.Now),
	}
	if purpose == domainauth.PurposeAccess {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("%w: purpose %q, want %q", ErrInvalidToken, claims.Purpose, purpose)
	}
	return claims, nil
}

func (s *TokenService) ParseAccess(token string) (domainauth.AccessClaims, error) {
	cl, err := s.Decode(token, domainauth.PurposeAccess)
	if err != nil {
		return domainauth.AccessClaims{}, err
	}
	if cl.UserID <= 0 || cl.Subject == "" {
		return domainauth.AccessClaims{}, ErrInvalidToken
	}
	return domainauth.AccessClaims{Sub: cl.Subject, ID: cl.UserID, Role: cl.Role}, nil
}

func (s *TokenService) ParseRefresh(token string) (int64, error) {
	cl, err := s.Decode(token, domainauth.PurposeRefresh)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(cl.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

func (s *TokenService) ParseAction(token string, purpose domainauth.Purpose) (string, error) {
	if purpose != domainauth.PurposeVerifyEmail && purpose != domainauth.PurposeResetPassword {
		return "", fmt.Errorf("%w: %q is not an action purpose", ErrInvalidToken, purpose)
	}
	cl, err := s.Decode(token, purpose)
	if err != nil {
		return "", err
	}
	if cl.Email == "" {
		return "", ErrInvalidToken
	}
	return cl.Email, nil
}

func (s *TokenService) secretFor(p domainauth.Purpose) ([]byte, bool) {
	switch p {
	case domainauth.PurposeAccess:
		return s.cfg.AccessSecret, true
	case domainauth.PurposeRefresh:
		return s.cfg.RefreshSecret, true
	case domainauth.PurposeVerifyEmail, domainauth.PurposeResetPassword:
		return s.cfg.ActionSecret, true
	}
	return nil, false
}
