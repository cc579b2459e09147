package eduAuth

import "github.com/MrEthical07/eduAuth/internal/metrics"

// MetricID identifies one engine metric.
type MetricID = metrics.ID

// MetricsSnapshot is a point-in-time copy of the engine counters.
type MetricsSnapshot = metrics.Snapshot

const (
	MetricLoginSuccess             = metrics.LoginSuccess
	MetricLoginFailure             = metrics.LoginFailure
	MetricLoginRateLimited         = metrics.LoginRateLimited
	MetricRefreshSuccess           = metrics.RefreshSuccess
	MetricRefreshFailure           = metrics.RefreshFailure
	MetricRefreshReuseDetected     = metrics.RefreshReuseDetected
	MetricRefreshRateLimited       = metrics.RefreshRateLimited
	MetricLogout                   = metrics.Logout
	MetricRateLimitHit             = metrics.RateLimitHit
	MetricRateLimitStoreError      = metrics.RateLimitStoreError
	MetricAuthenticateSuccess      = metrics.AuthenticateSuccess
	MetricAuthenticateFailure      = metrics.AuthenticateFailure
	MetricIdentityCacheHit         = metrics.IdentityCacheHit
	MetricIdentityCacheMiss        = metrics.IdentityCacheMiss
	MetricIdentityCacheStoreError  = metrics.IdentityCacheStoreError
	MetricIdentityInvalidated      = metrics.IdentityInvalidated
	MetricAccountCreationSuccess   = metrics.AccountCreationSuccess
	MetricAccountCreationDuplicate = metrics.AccountCreationDuplicate
	MetricPasswordChangeSuccess    = metrics.PasswordChangeSuccess
	MetricPasswordChangeInvalidOld = metrics.PasswordChangeInvalidOld
	MetricPasswordRehash           = metrics.PasswordRehash
	MetricRoleChanged              = metrics.RoleChanged
	MetricAccountDeleted           = metrics.AccountDeleted
	MetricAccountRestored          = metrics.AccountRestored
	MetricValidateLatency          = metrics.ValidateLatency
)

// MetricsSnapshot returns the current counters, or an empty snapshot when metrics
// are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricHook(id MetricID) func() {
	return func() { e.metricInc(id) }
}
