// Package respond renders JSON bodies and gRPC-status errors for handlers
// registered on the gateway mux.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const maxBodyBytes = 1 << 20

type Responder struct {
	mux *runtime.ServeMux
	m   runtime.Marshaler
}

func New(mux *runtime.ServeMux) *Responder {
	return &Responder{mux: mux, m: &runtime.JSONBuiltin{}}
}

func (rs *Responder) JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", rs.m.ContentType(v))
	w.WriteHeader(code)
	if v == nil {
		return
	}
	_ = rs.m.NewEncoder(w).Encode(v)
}

// Error writes err as a google.rpc.Status body. Errors without a gRPC status
// become Internal with a generic message.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	if _, ok := status.FromError(err); !ok {
		err = status.Error(codes.Internal, "internal error")
	}
	runtime.HTTPError(r.Context(), rs.mux, rs.m, w, r, err)
}

// Decode reads a JSON body into v and runs its validation rules.
func (rs *Responder) Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return status.Error(codes.InvalidArgument, fmt.Sprintf("malformed body: %v", err))
	}
	if vv, ok := v.(validation.Validatable); ok {
		if err := vv.Validate(); err != nil {
			return Invalid(err)
		}
	}
	return nil
}

func Invalid(err error) error {
	var errs validation.Errors
	if errors.As(err, &errs) {
		return status.Error(codes.InvalidArgument, errs.Error())
	}
	return status.Error(codes.InvalidArgument, err.Error())
}
