package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/eduAuth/internal/logging"
	"github.com/redis/go-redis/v9"
)

const defaultOpTimeout = 250 * time.Millisecond

// KEYS[1] counter key; ARGV[1] window in ms. Returns {count, pttl}.
const consumeScript = `
local count = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if count == 1 or ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`

var consumeLua = redis.NewScript(consumeScript)

// Decision is the outcome of one TryConsume call.
type Decision struct {
	Allowed    bool
	Count      int64
	RetryAfter time.Duration
}

// Config holds limiter tuning parameters.
type Config struct {
	OpTimeout time.Duration
	// OnStoreError fires once per failed-open decision.
	OnStoreError func()
}

// Limiter enforces fixed-window policies using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
	logger logging.Logger
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config, logger logging.Logger) *Limiter {
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = defaultOpTimeout
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
		logger: logging.OrNop(logger),
	}
}

// TryConsume counts one request against policy for the given key parts.
func (l *Limiter) TryConsume(ctx context.Context, policy Policy, parts ...string) Decision {
	if !policy.Valid() {
		l.logger.Error(ctx, "rate limit policy invalid, allowing", "policy", policy.Name)
		return Decision{Allowed: true}
	}

	count, ttl, err := l.incrementWithTTL(ctx, Key(policy, parts...), policy.Window)
	if err != nil {
		l.logger.Error(ctx, "rate limit store failure, allowing", "policy", policy.Name, "error", err)
		if l.config.OnStoreError != nil {
			l.config.OnStoreError()
		}
		return Decision{Allowed: true}
	}

	if count > int64(policy.Limit) {
		return Decision{Allowed: false, Count: count, RetryAfter: retryAfter(ttl)}
	}
	return Decision{Allowed: true, Count: count}
}

// Check is TryConsume expressed as an error: nil when allowed, ErrRateLimited
// otherwise.
func (l *Limiter) Check(ctx context.Context, policy Policy, parts ...string) (Decision, error) {
	decision := l.TryConsume(ctx, policy, parts...)
	if !decision.Allowed {
		return decision, ErrRateLimited
	}
	return decision, nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, l.config.OpTimeout)
	defer cancel()

	res, err := consumeLua.Run(ctx, l.redis, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, errors.New("unexpected script reply"))
	}

	return res[0], time.Duration(res[1]) * time.Millisecond, nil
}

// retryAfter rounds the remaining window up to whole seconds, never below one.
func retryAfter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return time.Second
	}
	seconds := (ttl + time.Second - 1) / time.Second
	return seconds * time.Second
}
