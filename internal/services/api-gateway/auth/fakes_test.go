package auth

import (
	"context"
	"errors"
	"maps"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	coreauth "github.com/NordCoder/crewcruise/internal/auth"
	"github.com/NordCoder/crewcruise/internal/domain/mail"
	"github.com/NordCoder/crewcruise/internal/domain/user"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memUsers struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]user.User
}

func newMemUsers() *memUsers { return &memUsers{rows: map[int64]user.User{}} }

func (m *memUsers) Create(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Email == u.Email {
			return user.ErrEmailTaken
		}
	}
	m.nextID++
	u.ID = m.nextID
	m.rows[u.ID] = *u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &r, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Email == email {
			return &r, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *memUsers) update(id int64, fn func(*user.User) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return user.ErrNotFound
	}
	if err := fn(&r); err != nil {
		return err
	}
	m.rows[id] = r
	return nil
}

func (m *memUsers) UpdateRefreshToken(_ context.Context, id int64, token *string) error {
	return m.update(id, func(u *user.User) error {
		if token == nil {
			u.RefreshToken = nil
			return nil
		}
		t := *token
		u.RefreshToken = &t
		return nil
	})
}

func (m *memUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	return m.update(id, func(u *user.User) error { u.PasswordHash = hash; return nil })
}

func (m *memUsers) MarkVerified(_ context.Context, id int64, at time.Time) error {
	return m.update(id, func(u *user.User) error {
		if u.VerifiedAt != nil {
			return user.ErrAlreadyVerified
		}
		u.VerifiedAt = &at
		return nil
	})
}

func (m *memUsers) UpdateProfile(_ context.Context, id int64, p user.Profile) (*user.User, error) {
	var out user.User
	err := m.update(id, func(u *user.User) error {
		if p.Names != nil {
			u.Names = *p.Names
		}
		if p.Position != nil {
			u.Position = *p.Position
		}
		out = *u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *memUsers) SetActivated(_ context.Context, id int64, activated bool) error {
	return m.update(id, func(u *user.User) error { u.Activated = activated; return nil })
}

func (m *memUsers) delete(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
}

// memTx restores the user table when fn fails.
type memTx struct{ users *memUsers }

func (t memTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.users.mu.Lock()
	snap := maps.Clone(t.users.rows)
	next := t.users.nextID
	t.users.mu.Unlock()

	if err := fn(ctx); err != nil {
		t.users.mu.Lock()
		t.users.rows, t.users.nextID = snap, next
		t.users.mu.Unlock()
		return err
	}
	return nil
}

type captureMail struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (c *captureMail) Dispatch(_ context.Context, m mail.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, m)
	return nil
}

func (c *captureMail) last(t *testing.T) mail.Message {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.sent, "no mail dispatched")
	return c.sent[len(c.sent)-1]
}

// tokenFrom pulls the token query parameter out of the link in m.
func tokenFrom(t *testing.T, m mail.Message) string {
	t.Helper()
	i := strings.Index(m.Text, "?token=")
	require.GreaterOrEqual(t, i, 0, "no link in mail")
	raw := m.Text[i+len("?token="):]
	if j := strings.IndexAny(raw, " \n"); j >= 0 {
		raw = raw[:j]
	}
	tok, err := url.QueryUnescape(raw)
	require.NoError(t, err)
	return tok
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	uc     *Usecase
	users  *memUsers
	mail   *captureMail
	tokens *coreauth.TokenService
	hasher *coreauth.BcryptHasher
	clock  *testClock
}

const testLinkBase = "https://crew.test/api/v1"

func newTestEnv(t *testing.T, opts ...func(*Config)) *testEnv {
	t.Helper()
	clock := &testClock{now: time.Unix(1_700_000_000, 0).UTC()}
	tokens, err := coreauth.NewTokenService(coreauth.TokenConfig{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		ActionTTL:     30 * time.Minute,
		Now:           clock.Now,
	})
	require.NoError(t, err)

	cfg := Config{LinkBaseURL: testLinkBase + "/", ActionTTL: 30 * time.Minute, Now: clock.Now}
	for _, o := range opts {
		o(&cfg)
	}

	users := newMemUsers()
	mailer := &captureMail{}
	hasher := coreauth.NewBcryptHasher(bcrypt.MinCost)
	return &testEnv{
		uc:     NewUseCase(users, hasher, tokens, mailer, memTx{users: users}, cfg, nil),
		users:  users,
		mail:   mailer,
		tokens: tokens,
		hasher: hasher,
		clock:  clock,
	}
}

// signUpActive registers an account and marks it verified and activated
// the way an administrator would.
func (e *testEnv) signUpActive(t *testing.T, email, password string) *user.User {
	t.Helper()
	u, err := e.uc.SignUp(context.Background(), SignUpInput{Email: email, Names: "A", Position: "crew", Password: password})
	require.NoError(t, err)
	require.NoError(t, e.users.MarkVerified(context.Background(), u.ID, e.clock.Now()))
	require.NoError(t, e.users.SetActivated(context.Background(), u.ID, true))
	return u
}

var errSMTPDown = errors.New("mail queue unavailable")
