package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	coreauth "github.com/NordCoder/crewcruise/internal/auth"
	domainauth "github.com/NordCoder/crewcruise/internal/domain/auth"
	"github.com/NordCoder/crewcruise/internal/domain/mail"
	"github.com/NordCoder/crewcruise/internal/domain/user"
	"github.com/NordCoder/crewcruise/internal/obs"
	"go.uber.org/zap"
)

type Tokens interface {
	IssueAccessToken(c domainauth.AccessClaims) (string, error)
	IssueRefreshToken(userID int64) (string, error)
	IssueActionToken(email string, purpose domainauth.Purpose) (string, error)
	ParseAction(token string, purpose domainauth.Purpose) (string, error)
}

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Config struct {
	// LinkBaseURL is the public API prefix used in emailed links,
	// e.g. https://crew.example.com/api/v1.
	LinkBaseURL         string
	ConcealUnknownEmail bool
	ActionTTL           time.Duration
	Now                 func() time.Time
}

type Usecase struct {
	users  user.Repo
	hasher coreauth.PasswordHasher
	tokens Tokens
	mail   mail.Dispatcher
	tx     Transactor
	cfg    Config
	log    *zap.Logger
}

func NewUseCase(
	users user.Repo,
	hasher coreauth.PasswordHasher,
	tokens Tokens,
	dispatcher mail.Dispatcher,
	tx Transactor,
	cfg Config,
	log *zap.Logger,
) *Usecase {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if log == nil {
		log = zap.NewNop()
	}
	cfg.LinkBaseURL = strings.TrimRight(cfg.LinkBaseURL, "/")
	return &Usecase{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		mail:   dispatcher,
		tx:     tx,
		cfg:    cfg,
		log:    log.With(zap.String("component", "auth.usecase")),
	}
}

type SignUpInput struct {
	Email    string
	Names    string
	Position string
	Password string
}

// SignUp registers a CREW account and queues its verification email in the
// same transaction.
func (u *Usecase) SignUp(ctx context.Context, in SignUpInput) (_ *user.User, err error) {
	defer func() { observe("signup", err) }()

	email := strings.TrimSpace(in.Email)
	if _, err := u.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := u.cfg.Now()
	newUser := &user.User{
		Email:        email,
		Names:        strings.TrimSpace(in.Names),
		Position:     strings.TrimSpace(in.Position),
		Role:         user.RoleCrew,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = u.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := u.users.Create(ctx, newUser); err != nil {
			if errors.Is(err, user.ErrEmailTaken) {
				return ErrEmailExists
			}
			return fmt.Errorf("create user: %w", err)
		}
		return u.sendVerificationEmail(ctx, newUser)
	})
	if err != nil {
		return nil, err
	}

	obs.WithTrace(ctx, u.log).Info("user signed up", zap.Int64("user_id", newUser.ID), zap.String("email", email))
	return newUser, nil
}

func (u *Usecase) SignIn(ctx context.Context, email, password string) (_ *user.User, _ domainauth.TokenPair, err error) {
	defer func() { observe("signin", err) }()

	rec, err := u.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, domainauth.TokenPair{}, ErrInvalidCredentials
		}
		return nil, domainauth.TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}
	if !u.hasher.Compare(password, rec.PasswordHash) {
		return nil, domainauth.TokenPair{}, ErrInvalidCredentials
	}
	if !rec.Verified() {
		return nil, domainauth.TokenPair{}, ErrNotVerified
	}
	if !rec.Activated {
		return nil, domainauth.TokenPair{}, ErrNotActivated
	}

	pair, err := u.issueSession(ctx, rec)
	if err != nil {
		return nil, domainauth.TokenPair{}, err
	}
	return rec, pair, nil
}

// Logout clears the stored refresh token. A user without an active session
// is Unauthorized.
func (u *Usecase) Logout(ctx context.Context, userID int64) (err error) {
	defer func() { observe("logout", err) }()

	rec, err := u.getByID(ctx, userID)
	if err != nil {
		return err
	}
	if !rec.HasSession() {
		return ErrUnauthorized
	}
	if err := u.users.UpdateRefreshToken(ctx, rec.ID, nil); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// RefreshToken rotates the session of a user already authenticated by the
// refresh guard. The previous refresh token stops validating.
func (u *Usecase) RefreshToken(ctx context.Context, current *user.User) (_ domainauth.TokenPair, err error) {
	defer func() { observe("refresh", err) }()

	if current == nil {
		return domainauth.TokenPair{}, ErrUnauthorized
	}
	rec, err := u.getByID(ctx, current.ID)
	if err != nil {
		return domainauth.TokenPair{}, err
	}
	return u.issueSession(ctx, rec)
}

func (u *Usecase) ValidateRefreshToken(ctx context.Context, userID int64, token string) (*user.User, error) {
	rec, err := u.getByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !rec.HasSession() || !coreauth.MatchTokenHash(token, *rec.RefreshToken) {
		return nil, ErrUnauthorized
	}
	return rec, nil
}

func (u *Usecase) ForgotPassword(ctx context.Context, email string) (err error) {
	defer func() { observe("forgot_password", err) }()

	rec, err := u.getByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) && u.cfg.ConcealUnknownEmail {
			return nil
		}
		return err
	}

	token, err := u.tokens.IssueActionToken(rec.Email, domainauth.PurposeResetPassword)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	msg, err := forgotPasswordEmailTemplate.render(rec.Email, emailData{
		Names: rec.Names,
		Link:  u.link("reset-password", token),
		TTL:   u.cfg.ActionTTL,
	})
	if err != nil {
		return err
	}
	if err := u.mail.Dispatch(ctx, msg); err != nil {
		return fmt.Errorf("dispatch reset email: %w", err)
	}
	return nil
}

func (u *Usecase) ResetPassword(ctx context.Context, password, token string) (err error) {
	defer func() { observe("reset_password", err) }()

	email, err := u.tokens.ParseAction(token, domainauth.PurposeResetPassword)
	if err != nil {
		return ErrInvalidToken
	}
	rec, err := u.getByEmail(ctx, email)
	if err != nil {
		return err
	}
	hash, err := u.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := u.users.UpdatePassword(ctx, rec.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	obs.WithTrace(ctx, u.log).Info("password reset", zap.Int64("user_id", rec.ID))
	return nil
}

func (u *Usecase) VerifyEmail(ctx context.Context, token string) (err error) {
	defer func() { observe("verify_email", err) }()

	email, err := u.tokens.ParseAction(token, domainauth.PurposeVerifyEmail)
	if err != nil {
		return ErrInvalidToken
	}
	rec, err := u.getByEmail(ctx, email)
	if err != nil {
		return err
	}
	if rec.Verified() {
		return ErrAlreadyVerified
	}
	if err := u.users.MarkVerified(ctx, rec.ID, u.cfg.Now()); err != nil {
		switch {
		case errors.Is(err, user.ErrAlreadyVerified):
			return ErrAlreadyVerified
		case errors.Is(err, user.ErrNotFound):
			return ErrUserNotFound
		}
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

func (u *Usecase) ResendVerification(ctx context.Context, email string) (err error) {
	defer func() { observe("resend_verification", err) }()

	rec, err := u.getByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if rec.Verified() {
		return ErrAlreadyVerified
	}
	return u.sendVerificationEmail(ctx, rec)
}

func (u *Usecase) sendVerificationEmail(ctx context.Context, rec *user.User) error {
	token, err := u.tokens.IssueActionToken(rec.Email, domainauth.PurposeVerifyEmail)
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}
	msg, err := verifyEmailTemplate.render(rec.Email, emailData{
		Names: rec.Names,
		Link:  u.link("verify", token),
		TTL:   u.cfg.ActionTTL,
	})
	if err != nil {
		return err
	}
	if err := u.mail.Dispatch(ctx, msg); err != nil {
		return fmt.Errorf("dispatch verification email: %w", err)
	}
	return nil
}

// issueSession mints an access/refresh pair and stores the refresh token
// digest, replacing whatever session the user had.
func (u *Usecase) issueSession(ctx context.Context, rec *user.User) (domainauth.TokenPair, error) {
	access, err := u.tokens.IssueAccessToken(domainauth.AccessClaims{
		Sub:  rec.Email,
		ID:   rec.ID,
		Role: string(rec.Role),
	})
	if err != nil {
		return domainauth.TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := u.tokens.IssueRefreshToken(rec.ID)
	if err != nil {
		return domainauth.TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	digest := coreauth.HashToken(refresh)
	if err := u.users.UpdateRefreshToken(ctx, rec.ID, &digest); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return domainauth.TokenPair{}, ErrUnauthorized
		}
		return domainauth.TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	rec.RefreshToken = &digest

	return domainauth.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (u *Usecase) getByID(ctx context.Context, id int64) (*user.User, error) {
	rec, err := u.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return rec, nil
}

func (u *Usecase) getByEmail(ctx context.Context, email string) (*user.User, error) {
	rec, err := u.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return rec, nil
}

func (u *Usecase) link(action, token string) string {
	return u.cfg.LinkBaseURL + "/auth/" + action + "?token=" + url.QueryEscape(token)
}
