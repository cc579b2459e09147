package eduAuth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/eduAuth/accounts"
	"github.com/MrEthical07/eduAuth/identity"
	"github.com/MrEthical07/eduAuth/internal/audit"
	"github.com/MrEthical07/eduAuth/internal/logging"
	"github.com/MrEthical07/eduAuth/internal/metrics"
	"github.com/MrEthical07/eduAuth/internal/rate"
	"github.com/MrEthical07/eduAuth/jwt"
	"github.com/MrEthical07/eduAuth/password"
	"github.com/MrEthical07/eduAuth/session"
)

// RateDecision is the outcome of TryConsume.
type RateDecision = rate.Decision

// Engine is the authentication core. It is safe for concurrent use and holds no
// in-process locks on the request path.
type Engine struct {
	config     Config
	codec      *jwt.Codec
	sessions   *session.Service
	limiter    *rate.Limiter
	identities *identity.Cache
	accounts   accounts.Store
	hasher     *password.Hasher
	dummyHash  string
	audit      *audit.Dispatcher
	metrics    *metrics.Registry
	logger     logging.Logger
}

// Close flushes buffered audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// RateLimits returns the configured policies.
func (e *Engine) RateLimits() RateLimitConfig {
	if e == nil {
		return DefaultConfig().RateLimit
	}
	return e.config.RateLimit
}

// Authenticate verifies an access token and resolves the live identity behind it.
// Every failure is reported as ErrUnauthorized; the cause is logged.
func (e *Engine) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}()

	claims, err := e.codec.Verify(token)
	if err != nil {
		return nil, e.rejectAccess(ctx, "", string(jwt.ReasonOf(err)))
	}

	rec, err := e.identities.Lookup(ctx, claims.Subject)
	switch {
	case errors.Is(err, identity.ErrNotFound):
		return nil, e.rejectAccess(ctx, claims.Subject, "unknown_subject")
	case err != nil:
		e.logger.Error(ctx, "identity lookup failed", "subject", claims.Subject, "error", err)
		return nil, e.rejectAccess(ctx, claims.Subject, "identity_unavailable")
	case rec.Deleted:
		return nil, e.rejectAccess(ctx, claims.Subject, "deleted")
	case rec.Version != claims.Version:
		return nil, e.rejectAccess(ctx, claims.Subject, "stale_version")
	}

	e.metricInc(MetricAuthenticateSuccess)
	return &Identity{
		Subject: rec.Subject,
		Email:   rec.Email,
		Role:    rec.Role,
		Version: rec.Version,
	}, nil
}

func (e *Engine) rejectAccess(ctx context.Context, subject, reason string) error {
	e.metricInc(MetricAuthenticateFailure)
	e.logger.Info(ctx, "access token rejected", "reason", reason, "subject", subject)
	return ErrUnauthorized
}

// TryConsume counts one request against policy. Store failures allow the request.
func (e *Engine) TryConsume(ctx context.Context, policy Policy, parts ...string) RateDecision {
	if e == nil || e.limiter == nil {
		return RateDecision{Allowed: true}
	}

	decision := e.limiter.TryConsume(ctx, policy, parts...)
	if decision.Allowed {
		return decision
	}

	e.metricInc(MetricRateLimitHit)
	switch policy.Name {
	case e.config.RateLimit.Login.Name:
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, "", ErrRateLimited, nil)
	case e.config.RateLimit.Refresh.Name:
		e.metricInc(MetricRefreshRateLimited)
		e.emitAudit(ctx, auditEventRefreshRateLimited, false, "", ErrRateLimited, nil)
	default:
		e.emitAudit(ctx, auditEventRateLimited, false, "", ErrRateLimited, func() map[string]string {
			return map[string]string{"policy": policy.Name}
		})
	}
	return decision
}
