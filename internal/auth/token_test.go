package auth

import (
	"strings"
	"testing"
	"time"

	domainauth "github.com/NordCoder/crewcruise/internal/domain/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTokens(t *testing.T) (*TokenService, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0).UTC()}
	ts, err := NewTokenService(TokenConfig{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		ActionTTL:     30 * time.Minute,
		Now:           clk.Now,
	})
	require.NoError(t, err)
	return ts, clk
}

func TestNewTokenService_MissingConfig(t *testing.T) {
	t.Parallel()
	base := TokenConfig{
		AccessSecret:  []byte("a"),
		RefreshSecret: []byte("r"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		ActionTTL:     time.Minute,
	}

	cases := map[string]func(c *TokenConfig){
		"no access secret":  func(c *TokenConfig) { c.AccessSecret = nil },
		"no refresh secret": func(c *TokenConfig) { c.RefreshSecret = nil },
		"zero access ttl":   func(c *TokenConfig) { c.AccessTTL = 0 },
		"zero action ttl":   func(c *TokenConfig) { c.ActionTTL = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			_, err := NewTokenService(cfg)
			require.ErrorIs(t, err, ErrTokenConfig)
		})
	}
}

func TestAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()
	ts, _ := newTestTokens(t)

	tok, err := ts.IssueAccessToken(domainauth.AccessClaims{Sub: "a@x.com", ID: 7, Role: "CREW"})
	require.NoError(t, err)

	got, err := ts.ParseAccess(tok)
	require.NoError(t, err)
	assert.Equal(t, domainauth.AccessClaims{Sub: "a@x.com", ID: 7, Role: "CREW"}, got)

	cl, err := ts.Decode(tok, domainauth.PurposeAccess)
	require.NoError(t, err)
	assert.Equal(t, DefaultIssuer, cl.Issuer)
	assert.NotEmpty(t, cl.RegisteredClaims.ID)
}

func TestRefreshToken_RoundTripAndUniqueness(t *testing.T) {
	t.Parallel()
	ts, _ := newTestTokens(t)

	a, err := ts.IssueRefreshToken(42)
	require.NoError(t, err)
	b, err := ts.IssueRefreshToken(42)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "tokens minted in the same second must differ")

	id, err := ts.ParseRefresh(a)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestToken_Expiry(t *testing.T) {
	t.Parallel()
	ts, clk := newTestTokens(t)

	tok, err := ts.IssueAccessToken(domainauth.AccessClaims{Sub: "a@x.com", ID: 1, Role: "CREW"})
	require.NoError(t, err)

	clk.Advance(15*time.Minute - time.Second)
	_, err = ts.ParseAccess(tok)
	require.NoError(t, err, "valid just before the lifetime elapses")

	clk.Advance(time.Second)
	_, err = ts.ParseAccess(tok)
	require.ErrorIs(t, err, ErrInvalidToken, "invalid exactly at expiry")

	clk.Advance(time.Hour)
	_, err = ts.ParseAccess(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestActionToken_Expiry(t *testing.T) {
	t.Parallel()
	ts, clk := newTestTokens(t)

	tok, err := ts.IssueActionToken("a@x.com", domainauth.PurposeResetPassword)
	require.NoError(t, err)

	email, err := ts.ParseAction(tok, domainauth.PurposeResetPassword)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", email)

	clk.Advance(30 * time.Minute)
	_, err = ts.ParseAction(tok, domainauth.PurposeResetPassword)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestDecode_PurposeIsEnforced(t *testing.T) {
	t.Parallel()
	ts, _ := newTestTokens(t)

	access, err := ts.IssueAccessToken(domainauth.AccessClaims{Sub: "a@x.com", ID: 1, Role: "CREW"})
	require.NoError(t, err)
	verify, err := ts.IssueActionToken("a@x.com", domainauth.PurposeVerifyEmail)
	require.NoError(t, err)
	reset, err := ts.IssueActionToken("a@x.com", domainauth.PurposeResetPassword)
	require.NoError(t, err)
	refresh, err := ts.IssueRefreshToken(1)
	require.NoError(t, err)

	// access and action tokens share a secret; only the purpose claim keeps them apart
	_, err = ts.ParseAction(access, domainauth.PurposeResetPassword)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = ts.ParseAction(verify, domainauth.PurposeResetPassword)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = ts.ParseAction(reset, domainauth.PurposeVerifyEmail)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = ts.ParseAccess(reset)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = ts.ParseAccess(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = ts.ParseRefresh(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = ts.ParseAction(verify, domainauth.PurposeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDecode_RejectsForeignAndMalformed(t *testing.T) {
	t.Parallel()
	ts, clk := newTestTokens(t)

	other, err := NewTokenService(TokenConfig{
		AccessSecret:  []byte("other-access"),
		RefreshSecret: []byte("other-refresh"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		ActionTTL:     time.Minute,
		Now:           clk.Now,
	})
	require.NoError(t, err)
	foreign, err := other.IssueAccessToken(domainauth.AccessClaims{Sub: "a@x.com", ID: 1, Role: "CREW"})
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"wrong secret": foreign,
		"empty":        "",
		"garbage":      "not.a.jwt",
		"two parts":    "abc.def",
	} {
		_, err := ts.ParseAccess(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

func TestDecode_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()
	ts, clk := newTestTokens(t)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "a@x.com",
			Issuer:    DefaultIssuer,
			ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Minute)),
		},
		UserID:  1,
		Purpose: domainauth.PurposeAccess,
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ts.ParseAccess(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("access-secret"))
	require.NoError(t, err)
	_, err = ts.ParseAccess(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDecode_AccessRequiresIssuer(t *testing.T) {
	t.Parallel()
	ts, clk := newTestTokens(t)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "a@x.com",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Minute)),
		},
		UserID:  1,
		Purpose: domainauth.PurposeAccess,
	}).SignedString([]byte("access-secret"))
	require.NoError(t, err)

	_, err = ts.ParseAccess(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueActionToken_RejectsNonActionPurpose(t *testing.T) {
	t.Parallel()
	ts, _ := newTestTokens(t)

	_, err := ts.IssueActionToken("a@x.com", domainauth.PurposeAccess)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsupported purpose"))
}

func TestActionSecretOverride(t *testing.T) {
	t.Parallel()
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0).UTC()}
	ts, err := NewTokenService(TokenConfig{
		AccessSecret:  []byte("access"),
		RefreshSecret: []byte("refresh"),
		ActionSecret:  []byte("action"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		ActionTTL:     time.Minute,
		Now:           clk.Now,
	})
	require.NoError(t, err)

	tok, err := ts.IssueActionToken("a@x.com", domainauth.PurposeVerifyEmail)
	require.NoError(t, err)

	_, err = jwt.Parse(tok, func(*jwt.Token) (any, error) { return []byte("access"), nil }, jwt.WithTimeFunc(clk.Now))
	assert.Error(t, err, "must not verify with the access secret")

	email, err := ts.ParseAction(tok, domainauth.PurposeVerifyEmail)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", email)
}
