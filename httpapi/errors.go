package httpapi

import (
	"errors"
	"net/http"

	eduAuth "github.com/MrEthical07/eduAuth"
	"github.com/MrEthical07/eduAuth/middleware"
)

const (
	msgBadRequest         = "invalid request body"
	msgInvalidCredentials = "invalid email or password"
	msgInvalidRefresh     = "invalid refresh token"
	msgAccountExists      = "email already registered"
	msgAccountNotFound    = "account not found"
	msgInvalidEmail       = "invalid email"
	msgPasswordPolicy     = "password does not meet requirements"
	msgInvalidRole        = "invalid role"
	msgInternal           = "internal error"
)

// writeEngineError maps an engine error to a status and a fixed message. The
// cause is logged, never returned.
func (a *api) writeEngineError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := classify(err)
	if status == http.StatusInternalServerError {
		a.logger.Error(r.Context(), "request failed", "op", op, "error", err)
	}
	middleware.WriteError(w, status, msg)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, eduAuth.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidCredentials
	case errors.Is(err, eduAuth.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, msgInvalidRefresh
	case errors.Is(err, eduAuth.ErrUnauthorized):
		return http.StatusUnauthorized, middleware.MessageUnauthorized
	case errors.Is(err, eduAuth.ErrRateLimited):
		return http.StatusTooManyRequests, middleware.MessageTooManyRequests
	case errors.Is(err, eduAuth.ErrInvalidEmail):
		return http.StatusBadRequest, msgInvalidEmail
	case errors.Is(err, eduAuth.ErrPasswordPolicy):
		return http.StatusBadRequest, msgPasswordPolicy
	case errors.Is(err, eduAuth.ErrInvalidRole):
		return http.StatusBadRequest, msgInvalidRole
	case errors.Is(err, eduAuth.ErrAccountExists):
		return http.StatusConflict, msgAccountExists
	case errors.Is(err, eduAuth.ErrAccountNotFound):
		return http.StatusNotFound, msgAccountNotFound
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
