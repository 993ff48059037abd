package auth

import (
	"errors"
	"net/http"
	"time"

	domainauth "github.com/NordCoder/crewcruise/internal/domain/auth"
	"github.com/NordCoder/crewcruise/internal/domain/user"
	"github.com/NordCoder/crewcruise/internal/obs"
	"github.com/NordCoder/crewcruise/internal/services/api-gateway/respond"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Server struct {
	log          *zap.Logger
	uc           *Usecase
	guard        *Guard
	rs           *respond.Responder
	cookieName   string
	cookieDomain string
	cookiePath   string
	cookieSecure bool
	refreshTTL   time.Duration
}

type Opts struct {
	Logger       *zap.Logger
	CookieName   string
	CookieDomain string
	CookiePath   string
	CookieSecure bool
	RefreshTTL   time.Duration
}

func NewServer(uc *Usecase, guard *Guard, rs *respond.Responder, o Opts) *Server {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		log:          log.With(zap.String("component", "auth.http")),
		uc:           uc,
		guard:        guard,
		rs:           rs,
		cookieName:   o.CookieName,
		cookieDomain: o.CookieDomain,
		cookiePath:   o.CookiePath,
		cookieSecure: o.CookieSecure,
		refreshTTL:   o.RefreshTTL,
	}
}

func (s *Server) Register(mux *runtime.ServeMux) error {
	routes := []struct {
		method, path string
		h            runtime.HandlerFunc
	}{
		{http.MethodPost, "/api/v1/auth/signup", s.SignUp},
		{http.MethodPost, "/api/v1/auth/signin", s.SignIn},
		{http.MethodPost, "/api/v1/auth/logout", s.guard.Access(s.Logout)},
		{http.MethodPost, "/api/v1/auth/refresh", s.guard.Refresh(s.Refresh)},
		{http.MethodPost, "/api/v1/auth/forgot-password", s.ForgotPassword},
		{http.MethodPost, "/api/v1/auth/reset-password", s.ResetPassword},
		{http.MethodGet, "/api/v1/auth/verify", s.VerifyEmail},
		{http.MethodPost, "/api/v1/auth/verify/resend", s.ResendVerification},
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.path, rt.h); err != nil {
			return err
		}
	}
	return nil
}

type signUpRequest struct {
	Email    string `json:"email"`
	Names    string `json:"names"`
	Position string `json:"position"`
	Password string `json:"password"`
}

func (r signUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Names, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Position, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 72)),
	)
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r signInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type emailRequest struct {
	Email string `json:"email"`
}

func (r emailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type resetPasswordRequest struct {
	Password string `json:"password"`
	Token    string `json:"token"`
}

func (r resetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(1, 72)),
		validation.Field(&r.Token, validation.Required),
	)
}

type signInResponse struct {
	domainauth.TokenPair
	User *user.User `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) SignUp(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req signUpRequest
	if err := s.rs.Decode(r, &req); err != nil {
		s.rs.Error(w, r, err)
		return
	}
	u, err := s.uc.SignUp(r.Context(), SignUpInput(req))
	if err != nil {
		s.fail(w, r, "auth.signup", err)
		return
	}
	s.rs.JSON(w, http.StatusCreated, u)
}

func (s *Server) SignIn(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req signInRequest
	if err := s.rs.Decode(r, &req); err != nil {
		s.rs.Error(w, r, err)
		return
	}
	u, pair, err := s.uc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, "auth.signin", err)
		return
	}
	s.setRefreshCookie(w, pair.RefreshToken)
	s.rs.JSON(w, http.StatusOK, signInResponse{TokenPair: pair, User: u})
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	p, _ := PrincipalFromCtx(r.Context())
	if err := s.uc.Logout(r.Context(), p.ID); err != nil {
		s.fail(w, r, "auth.logout", err)
		return
	}
	s.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) Refresh(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	u, _ := SessionUserFromCtx(r.Context())
	pair, err := s.uc.RefreshToken(r.Context(), u)
	if err != nil {
		s.clearRefreshCookie(w)
		s.fail(w, r, "auth.refresh", err)
		return
	}
	s.setRefreshCookie(w, pair.RefreshToken)
	s.rs.JSON(w, http.StatusOK, pair)
}

func (s *Server) ForgotPassword(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req emailRequest
	if err := s.rs.Decode(r, &req); err != nil {
		s.rs.Error(w, r, err)
		return
	}
	if err := s.uc.ForgotPassword(r.Context(), req.Email); err != nil {
		s.fail(w, r, "auth.forgot_password", err)
		return
	}
	s.rs.JSON(w, http.StatusAccepted, messageResponse{Message: "Password reset email sent"})
}

func (s *Server) ResetPassword(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req resetPasswordRequest
	if err := s.rs.Decode(r, &req); err != nil {
		s.rs.Error(w, r, err)
		return
	}
	if err := s.uc.ResetPassword(r.Context(), req.Password, req.Token); err != nil {
		s.fail(w, r, "auth.reset_password", err)
		return
	}
	s.rs.JSON(w, http.StatusOK, messageResponse{Message: "Password updated"})
}

func (s *Server) VerifyEmail(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	token := r.URL.Query().Get("token")
	if token == "" {
		s.rs.Error(w, r, status.Error(codes.InvalidArgument, ErrInvalidToken.Error()))
		return
	}
	if err := s.uc.VerifyEmail(r.Context(), token); err != nil {
		s.fail(w, r, "auth.verify", err)
		return
	}
	s.rs.JSON(w, http.StatusOK, messageResponse{Message: "Email verified"})
}

func (s *Server) ResendVerification(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req emailRequest
	if err := s.rs.Decode(r, &req); err != nil {
		s.rs.Error(w, r, err)
		return
	}
	if err := s.uc.ResendVerification(r.Context(), req.Email); err != nil {
		s.fail(w, r, "auth.verify_resend", err)
		return
	}
	s.rs.JSON(w, http.StatusAccepted, messageResponse{Message: "Verification email sent"})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	st := mapErr(err)
	if status.Code(st) == codes.Internal {
		obs.WithTrace(r.Context(), s.log).Error(op+" failed", zap.Error(err))
	} else {
		obs.WithTrace(r.Context(), s.log).Debug(op+" rejected", zap.Error(err))
	}
	s.rs.Error(w, r, st)
}

// mapErr converts auth errors to gRPC statuses; anything unknown is Internal.
func mapErr(err error) error {
	switch {
	case errors.Is(err, ErrEmailExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrNotVerified),
		errors.Is(err, ErrNotActivated),
		errors.Is(err, ErrUnauthorized):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, ErrUserNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrAlreadyVerified):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, raw string) {
	if s.cookieName == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    raw,
		Path:     s.cookiePath,
		Domain:   s.cookieDomain,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.refreshTTL.Seconds()),
		Expires:  time.Now().Add(s.refreshTTL).UTC(),
	})
}

func (s *Server) clearRefreshCookie(w http.ResponseWriter) {
	if s.cookieName == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     s.cookiePath,
		Domain:   s.cookieDomain,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
	})
}
