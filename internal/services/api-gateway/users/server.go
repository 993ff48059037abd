package users

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/NordCoder/crewcruise/internal/domain/user"
	"github.com/NordCoder/crewcruise/internal/obs"
	"github.com/NordCoder/crewcruise/internal/services/api-gateway/auth"
	"github.com/NordCoder/crewcruise/internal/services/api-gateway/respond"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Server struct {
	log   *zap.Logger
	uc    *Usecase
	guard *auth.Guard
	rs    *respond.Responder
}

func NewServer(uc *Usecase, guard *auth.Guard, rs *respond.Responder, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{log: log.With(zap.String("component", "users.http")), uc: uc, guard: guard, rs: rs}
}

func (s *Server) Register(mux *runtime.ServeMux) error {
	admin := []auth.Middleware{s.guard.Access, auth.RequireRole(s.rs, user.RoleAdmin)}

	// The gateway mux tries later registrations first, so /users/profile
	// must come after /users/{id}.
	routes := []struct {
		method, path string
		h            runtime.HandlerFunc
	}{
		{http.MethodGet, "/api/v1/users/{id}", auth.Chain(s.GetUser, admin...)},
		{http.MethodPatch, "/api/v1/users/{id}/activation", auth.Chain(s.SetActivation, admin...)},
		{http.MethodGet, "/api/v1/users/profile", s.guard.Access(s.GetProfile)},
		{http.MethodPatch, "/api/v1/users/profile", s.guard.Access(s.UpdateProfile)},
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.path, rt.h); err != nil {
			return err
		}
	}
	return nil
}

type updateProfileRequest struct {
	Names    *string `json:"names"`
	Position *string `json:"position"`
}

func (r updateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Names, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&r.Position, validation.NilOrNotEmpty, validation.Length(1, 100)),
	)
}

type activationRequest struct {
	Activated *bool `json:"activated"`
}

func (r activationRequest) Validate() error {
	return validation.ValidateStruct(&r, validation.Field(&r.Activated, validation.NotNil))
}

func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	p, _ := auth.PrincipalFromCtx(r.Context())
	u, err := s.uc.Get(r.Context(), p.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.rs.JSON(w, http.StatusOK, u)
}

func (s *Server) UpdateProfile(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req updateProfileRequest
	if err := s.rs.Decode(r, &req); err != nil {
		s.rs.Error(w, r, err)
		return
	}
	p, _ := auth.PrincipalFromCtx(r.Context())
	u, err := s.uc.UpdateProfile(r.Context(), p.ID, user.Profile{Names: req.Names, Position: req.Position})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.rs.JSON(w, http.StatusOK, u)
}

func (s *Server) GetUser(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := pathID(params)
	if err != nil {
		s.rs.Error(w, r, err)
		return
	}
	u, err := s.uc.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.rs.JSON(w, http.StatusOK, u)
}

func (s *Server) SetActivation(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := pathID(params)
	if err != nil {
		s.rs.Error(w, r, err)
		return
	}
	var req activationRequest
	if err := s.rs.Decode(r, &req); err != nil {
		s.rs.Error(w, r, err)
		return
	}
	u, err := s.uc.SetActivated(r.Context(), id, *req.Activated)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, _ := auth.PrincipalFromCtx(r.Context())
	obs.WithTrace(r.Context(), s.log).Info("user activation changed",
		zap.Int64("user_id", id), zap.Bool("activated", u.Activated), zap.Int64("by", p.ID))
	s.rs.JSON(w, http.StatusOK, u)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		s.rs.Error(w, r, status.Error(codes.NotFound, err.Error()))
	case errors.Is(err, ErrEmptyUpdate):
		s.rs.Error(w, r, status.Error(codes.InvalidArgument, err.Error()))
	default:
		obs.WithTrace(r.Context(), s.log).Error("users request failed", zap.Error(err))
		s.rs.Error(w, r, status.Error(codes.Internal, "internal error"))
	}
}

func pathID(params map[string]string) (int64, error) {
	id, err := strconv.ParseInt(params["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, status.Error(codes.InvalidArgument, "invalid user id")
	}
	return id, nil
}
