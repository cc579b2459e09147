package eduAuth

import (
	"io"

	"github.com/MrEthical07/eduAuth/internal/audit"
	"github.com/MrEthical07/eduAuth/internal/logging"
)

// AuditEvent is one security event delivered to an AuditSink.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpAuditSink discards events.
type NoOpAuditSink = audit.NoOpSink

// NewChannelAuditSink returns a sink that forwards events into a buffered channel.
func NewChannelAuditSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterAuditSink returns a sink that writes one JSON object per line.
func NewJSONWriterAuditSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewLoggerAuditSink returns a sink that logs each event at info level.
func NewLoggerAuditSink(logger logging.Logger) *audit.LoggerSink {
	return audit.NewLoggerSink(logger)
}

const (
	auditEventLoginSuccess        = "login_success"
	auditEventLoginFailure        = "login_failure"
	auditEventLoginRateLimited    = "login_rate_limited"
	auditEventRefreshSuccess      = "refresh_success"
	auditEventRefreshInvalid      = "refresh_invalid"
	auditEventRefreshReuse        = "refresh_reuse_detected"
	auditEventRefreshRateLimited  = "refresh_rate_limited"
	auditEventLogout              = "logout"
	auditEventRateLimited         = "rate_limited"
	auditEventAccountCreated      = "account_created"
	auditEventPasswordChanged     = "password_changed"
	auditEventPasswordRehashed    = "password_rehashed"
	auditEventRoleChanged         = "role_changed"
	auditEventAccountDeleted      = "account_deleted"
	auditEventAccountRestored     = "account_restored"
	auditEventIdentityInvalidated = "identity_invalidated"
)
