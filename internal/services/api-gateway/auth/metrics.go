package auth

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var authOps = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "auth_operations_total",
	Help: "Auth service operations by outcome.",
}, []string{"op", "result"})

var knownErrs = []struct {
	err   error
	label string
}{
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrNotVerified, "not_verified"},
	{ErrNotActivated, "not_activated"},
	{ErrUnauthorized, "unauthorized"},
	{ErrEmailExists, "conflict"},
	{ErrUserNotFound, "not_found"},
	{ErrInvalidToken, "invalid_token"},
	{ErrAlreadyVerified, "already_verified"},
}

func observe(op string, err error) {
	authOps.WithLabelValues(op, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range knownErrs {
		if errors.Is(err, k.err) {
			return k.label
		}
	}
	return "error"
}
