package eduAuth

import (
	"errors"

	"github.com/MrEthical07/eduAuth/internal/rate"
)

var (
	// ErrConfiguration wraps every configuration failure detected by Build.
	ErrConfiguration = errors.New("eduauth configuration error")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not ready")

	// ErrInvalidCredentials covers unknown email, wrong password and deleted
	// accounts alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is the single outcome of any rejected access token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidRefreshToken covers malformed, unknown, stale and revoked refresh
	// tokens.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrRefreshReuse is joined with ErrInvalidRefreshToken when a rotated-out token
	// is presented again.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
	// ErrRateLimited is the error form of a denied rate decision.
	ErrRateLimited = rate.ErrRateLimited
	// ErrStoreUnavailable reports a Redis or database failure on a fail-closed path.
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrInvalidEmail    = errors.New("invalid email")
	ErrAccountExists   = errors.New("account already exists")
	ErrAccountNotFound = errors.New("account not found")
	ErrPasswordPolicy  = errors.New("password does not meet policy")
	ErrInvalidRole     = errors.New("invalid account role")
	// ErrAccountVersionNotAdvanced means a store mutation returned without bumping
	// the account version, so tokens minted before it would still verify.
	ErrAccountVersionNotAdvanced = errors.New("account version not advanced on mutation")
	// ErrIdentityInvalidationFailed is returned when a mutation was persisted but the
	// identity cache entry could not be dropped.
	ErrIdentityInvalidationFailed = errors.New("identity invalidation failed")
)
