package rate

import "errors"

var (
	// ErrRateLimited is returned by Check when the decision denies the request.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps store failures. TryConsume never returns it; it
	// only reaches logs and the store-error hook.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
