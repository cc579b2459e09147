package internaldefs

import (
	eduAuth "github.com/MrEthical07/eduAuth"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   eduAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   eduAuth.MetricID
	Name string
	Help string
}

// AuditDropped is the counter fed from Engine.AuditDropped.
var AuditDropped = CounterDef{
	Name: "eduauth_audit_dropped_total",
	Help: "Dropped audit events due to dispatcher backpressure.",
}

var CounterDefs = []CounterDef{
	{ID: eduAuth.MetricLoginSuccess, Name: "eduauth_login_success_total", Help: "Successful login attempts."},
	{ID: eduAuth.MetricLoginFailure, Name: "eduauth_login_failure_total", Help: "Failed login attempts."},
	{ID: eduAuth.MetricLoginRateLimited, Name: "eduauth_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: eduAuth.MetricRefreshSuccess, Name: "eduauth_refresh_success_total", Help: "Successful refresh operations."},
	{ID: eduAuth.MetricRefreshFailure, Name: "eduauth_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: eduAuth.MetricRefreshReuseDetected, Name: "eduauth_refresh_reuse_detected_total", Help: "Stale refresh tokens presented after rotation."},
	{ID: eduAuth.MetricRefreshRateLimited, Name: "eduauth_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: eduAuth.MetricLogout, Name: "eduauth_logout_total", Help: "Logout operations."},
	{ID: eduAuth.MetricRateLimitHit, Name: "eduauth_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: eduAuth.MetricRateLimitStoreError, Name: "eduauth_rate_limit_store_error_total", Help: "Rate-limit checks that failed open on a store error."},
	{ID: eduAuth.MetricAuthenticateSuccess, Name: "eduauth_authenticate_success_total", Help: "Requests authenticated with a valid access token."},
	{ID: eduAuth.MetricAuthenticateFailure, Name: "eduauth_authenticate_failure_total", Help: "Requests whose access token was rejected."},
	{ID: eduAuth.MetricIdentityCacheHit, Name: "eduauth_identity_cache_hit_total", Help: "Identity lookups served from cache."},
	{ID: eduAuth.MetricIdentityCacheMiss, Name: "eduauth_identity_cache_miss_total", Help: "Identity lookups that read the account store."},
	{ID: eduAuth.MetricIdentityCacheStoreError, Name: "eduauth_identity_cache_store_error_total", Help: "Identity cache operations that failed on the store."},
	{ID: eduAuth.MetricIdentityInvalidated, Name: "eduauth_identity_invalidated_total", Help: "Identity cache invalidations."},
	{ID: eduAuth.MetricAccountCreationSuccess, Name: "eduauth_account_creation_success_total", Help: "Successful account creations."},
	{ID: eduAuth.MetricAccountCreationDuplicate, Name: "eduauth_account_creation_duplicate_total", Help: "Account creation attempts rejected as duplicate."},
	{ID: eduAuth.MetricPasswordChangeSuccess, Name: "eduauth_password_change_success_total", Help: "Successful password changes."},
	{ID: eduAuth.MetricPasswordChangeInvalidOld, Name: "eduauth_password_change_invalid_old_total", Help: "Password change attempts with a wrong current password."},
	{ID: eduAuth.MetricPasswordRehash, Name: "eduauth_password_rehash_total", Help: "Password hashes upgraded on login."},
	{ID: eduAuth.MetricRoleChanged, Name: "eduauth_role_changed_total", Help: "Role change operations."},
	{ID: eduAuth.MetricAccountDeleted, Name: "eduauth_account_deleted_total", Help: "Account delete operations."},
	{ID: eduAuth.MetricAccountRestored, Name: "eduauth_account_restored_total", Help: "Account restore operations."},
}

var HistogramDefs = []HistogramDef{
	{ID: eduAuth.MetricValidateLatency, Name: "eduauth_validate_latency_seconds", Help: "Access token validation latency."},
}

var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds spelled for instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling short input.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
