package eduAuth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/eduAuth/internal/audit"
	"github.com/google/uuid"
)

// emitAudit queues one event. metadata is only evaluated when auditing is on.
func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, subject string, err error, metadata func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := audit.Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		Subject:   subject,
		IP:        ClientIPFromContext(ctx),
		RequestID: RequestIDFromContext(ctx),
		Success:   success,
		Error:     auditErrorCode(err),
	}
	if metadata != nil {
		event.Metadata = metadata()
	}
	e.audit.Emit(ctx, event)
}

// auditErrorCode maps an error to a stable code so raw store messages never land
// in the audit trail.
func auditErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRefreshReuse):
		return "refresh_reuse"
	case errors.Is(err, ErrInvalidRefreshToken):
		return "invalid_refresh_token"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrIdentityInvalidationFailed):
		return "identity_invalidation_failed"
	case errors.Is(err, ErrAccountExists):
		return "account_exists"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrPasswordPolicy):
		return "password_policy"
	case errors.Is(err, ErrInvalidEmail):
		return "invalid_email"
	case errors.Is(err, ErrAccountVersionNotAdvanced):
		return "version_not_advanced"
	default:
		return "internal"
	}
}

// AuditDropped returns the number of audit events lost to backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}
