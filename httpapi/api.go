package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	eduAuth "github.com/MrEthical07/eduAuth"
	"github.com/MrEthical07/eduAuth/internal/logging"
	"github.com/MrEthical07/eduAuth/middleware"
)

const maxBodyBytes = 1 << 20

// Engine is what the handlers call. *eduAuth.Engine implements it.
type Engine interface {
	middleware.Engine
	RateLimits() eduAuth.RateLimitConfig
	Register(ctx context.Context, email, password string) (*eduAuth.Identity, error)
	Login(ctx context.Context, email, password string) (eduAuth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (eduAuth.TokenPair, error)
	Logout(ctx context.Context, subject string) error
	ChangePassword(ctx context.Context, subject, current, next string) error
	ChangeRole(ctx context.Context, subject, role string) error
	DeleteAccount(ctx context.Context, subject string) error
	RestoreAccount(ctx context.Context, subject string) error
}

// Options tunes the router.
type Options struct {
	// TrustForwarded takes the client IP from X-Forwarded-For.
	TrustForwarded bool
	// Metrics, when set, is mounted at GET /metrics.
	Metrics http.Handler
}

type api struct {
	engine Engine
	logger logging.Logger
}

type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// New returns the router.
func New(engine Engine, logger logging.Logger, opts Options) http.Handler {
	a := &api{engine: engine, logger: logging.OrNop(logger)}
	limits := engine.RateLimits()

	gate := func(policy eduAuth.Policy, key middleware.KeyFunc) func(http.Handler) http.Handler {
		return middleware.Gate(engine,
			middleware.ClientIP(opts.TrustForwarded),
			middleware.ExtractBearer,
			middleware.Authenticate,
			middleware.RateLimit(policy, key),
		)
	}
	anyRole := middleware.RequireRole(eduAuth.RoleUser, eduAuth.RoleInstructor, eduAuth.RoleAdmin)
	admin := middleware.RequireRole(eduAuth.RoleAdmin)

	mux := http.NewServeMux()
	mux.Handle("POST /api/auth/register", gate(limits.Sensitive, middleware.KeyByIP)(http.HandlerFunc(a.register)))
	mux.Handle("POST /api/auth/login", gate(limits.Login, middleware.KeyByIP)(http.HandlerFunc(a.login)))
	mux.Handle("POST /api/auth/refresh", gate(limits.Refresh, middleware.KeyByIP)(http.HandlerFunc(a.refresh)))
	mux.Handle("POST /api/auth/logout", gate(limits.Default, middleware.KeyByIP)(middleware.RequireAuthenticated(http.HandlerFunc(a.logout))))

	mux.Handle("GET /api/account/me", gate(limits.Default, middleware.KeyByIP)(anyRole(http.HandlerFunc(a.me))))
	mux.Handle("PUT /api/account/password", gate(limits.Sensitive, middleware.KeyByIPAndSubject)(middleware.RequireAuthenticated(http.HandlerFunc(a.changePassword))))

	mux.Handle("PUT /api/admin/accounts/{id}/role", gate(limits.Default, middleware.KeyByIPAndSubject)(admin(http.HandlerFunc(a.changeRole))))
	mux.Handle("DELETE /api/admin/accounts/{id}", gate(limits.Default, middleware.KeyByIPAndSubject)(admin(http.HandlerFunc(a.deleteAccount))))
	mux.Handle("POST /api/admin/accounts/{id}/restore", gate(limits.Default, middleware.KeyByIPAndSubject)(admin(http.HandlerFunc(a.restoreAccount))))

	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}
	return mux
}

// decode reads a single JSON object into dst, rejecting unknown fields.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, msgBadRequest)
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		middleware.WriteError(w, http.StatusBadRequest, msgBadRequest)
		return false
	}
	return true
}

func writeData(w http.ResponseWriter, status int, data any) {
	middleware.WriteJSON(w, status, envelope{Success: true, Data: data})
}

func currentIdentity(r *http.Request) *eduAuth.Identity {
	id, _ := middleware.IdentityFromContext(r.Context())
	return id
}
