package auth

import (
	"context"
	"net/http"
	"slices"
	"strings"

	domainauth "github.com/NordCoder/crewcruise/internal/domain/auth"
	"github.com/NordCoder/crewcruise/internal/domain/user"
	"github.com/NordCoder/crewcruise/internal/services/api-gateway/respond"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Principal is the identity attached by the access guard.
type Principal struct {
	ID    int64
	Email string
	Role  user.Role
}

type ctxKey int

const (
	principalKey ctxKey = iota + 1
	sessionUserKey
)

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromCtx(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// SessionUserFromCtx returns the user attached by the refresh guard.
func SessionUserFromCtx(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(sessionUserKey).(*user.User)
	return u, ok && u != nil
}

type TokenParser interface {
	ParseAccess(token string) (domainauth.AccessClaims, error)
	ParseRefresh(token string) (int64, error)
}

type SessionValidator interface {
	ValidateRefreshToken(ctx context.Context, userID int64, token string) (*user.User, error)
}

type Middleware func(runtime.HandlerFunc) runtime.HandlerFunc

type Guard struct {
	tokens     TokenParser
	sessions   SessionValidator
	rs         *respond.Responder
	cookieName string
}

func NewGuard(tokens TokenParser, sessions SessionValidator, rs *respond.Responder, cookieName string) *Guard {
	return &Guard{tokens: tokens, sessions: sessions, rs: rs, cookieName: cookieName}
}

// Access requires a valid bearer access token.
func (g *Guard) Access(next runtime.HandlerFunc) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		token := bearer(r)
		if token == "" {
			g.rs.Error(w, r, status.Error(codes.Unauthenticated, "missing bearer token"))
			return
		}
		claims, err := g.tokens.ParseAccess(token)
		if err != nil {
			g.rs.Error(w, r, status.Error(codes.Unauthenticated, ErrInvalidToken.Error()))
			return
		}
		ctx := WithPrincipal(r.Context(), Principal{
			ID:    claims.ID,
			Email: claims.Sub,
			Role:  user.Role(claims.Role),
		})
		next(w, r.WithContext(ctx), params)
	}
}

// Refresh requires a refresh token that decodes and equals the user's stored
// session token. The token is read from the bearer header, the refresh cookie
// or X-Refresh-Token, in that order.
func (g *Guard) Refresh(next runtime.HandlerFunc) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		token := g.refreshToken(r)
		if token == "" {
			g.rs.Error(w, r, status.Error(codes.Unauthenticated, "missing refresh token"))
			return
		}
		userID, err := g.tokens.ParseRefresh(token)
		if err != nil {
			g.rs.Error(w, r, status.Error(codes.Unauthenticated, ErrInvalidToken.Error()))
			return
		}
		u, err := g.sessions.ValidateRefreshToken(r.Context(), userID, token)
		if err != nil {
			g.rs.Error(w, r, mapErr(err))
			return
		}
		ctx := context.WithValue(r.Context(), sessionUserKey, u)
		next(w, r.WithContext(ctx), params)
	}
}

// RequireRole lets the request through only when the principal attached by
// Access holds one of roles. It must be composed inside Access.
func RequireRole(rs *respond.Responder, roles ...user.Role) Middleware {
	return func(next runtime.HandlerFunc) runtime.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
			p, ok := PrincipalFromCtx(r.Context())
			if !ok {
				rs.Error(w, r, status.Error(codes.Unauthenticated, ErrUnauthorized.Error()))
				return
			}
			if !slices.Contains(roles, p.Role) {
				rs.Error(w, r, status.Error(codes.PermissionDenied, ErrForbidden.Error()))
				return
			}
			next(w, r, params)
		}
	}
}

// Chain applies mws so that the first one runs outermost.
func Chain(h runtime.HandlerFunc, mws ...Middleware) runtime.HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func (g *Guard) refreshToken(r *http.Request) string {
	if t := bearer(r); t != "" {
		return t
	}
	if g.cookieName != "" {
		if c, err := r.Cookie(g.cookieName); err == nil && c.Value != "" {
			return c.Value
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Refresh-Token"))
}

func bearer(r *http.Request) string {
	v := r.Header.Get("Authorization")
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return ""
}
