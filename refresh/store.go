package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound means no refresh record exists for the subject.
	ErrNotFound = errors.New("refresh record not found")
	// ErrMismatch means the presented digest is neither the current one nor its
	// recorded predecessor. The record is left untouched.
	ErrMismatch = errors.New("refresh digest mismatch")
	// ErrReused means the presented digest was already rotated out. The record has
	// been deleted.
	ErrReused = errors.New("refresh digest reused")
	// ErrStoreUnavailable wraps any Redis failure, timeout included.
	ErrStoreUnavailable = errors.New("refresh store unavailable")
)

const (
	defaultPrefix    = "refresh"
	defaultOpTimeout = 250 * time.Millisecond

	fieldCurrent  = "cur"
	fieldPrevious = "prev"
)

const (
	statusNotFound int64 = 0
	statusOK       int64 = 1
	statusMismatch int64 = 2
	statusReused   int64 = 3
)

// A record is a hash: "cur" holds the current digest and, after a rotation, "prev"
// holds the digest it replaced.
//
// KEYS[1] record key; ARGV[1] presented digest.
const checkScript = `
local current = redis.call("HGET", KEYS[1], "cur")
if not current then
  return 0
end
if current == ARGV[1] then
  return 1
end
if redis.call("HGET", KEYS[1], "prev") == ARGV[1] then
  redis.call("DEL", KEYS[1])
  return 3
end
return 2
`

// KEYS[1] record key; ARGV[1] presented digest; ARGV[2] next digest; ARGV[3] ttl ms.
const rotateScript = `
local current = redis.call("HGET", KEYS[1], "cur")
if not current then
  return 0
end
if current ~= ARGV[1] then
  return 2
end
redis.call("HSET", KEYS[1], "cur", ARGV[2], "prev", ARGV[1])
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return 1
`

var (
	checkLua  = redis.NewScript(checkScript)
	rotateLua = redis.NewScript(rotateScript)
)

// StoreConfig configures a Store.
type StoreConfig struct {
	Prefix    string
	OpTimeout time.Duration
}

// Store is the Redis-backed refresh record store. One record per subject.
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	opTimeout time.Duration
}

// NewStore creates a Store. Zero-valued config fields take defaults.
func NewStore(rdb redis.UniversalClient, cfg StoreConfig) *Store {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = defaultOpTimeout
	}
	return &Store{
		redis:     rdb,
		prefix:    cfg.Prefix,
		opTimeout: cfg.OpTimeout,
	}
}

func (s *Store) key(subject string) string {
	return s.prefix + ":" + subject
}

// Save stores digest as the subject's only valid refresh credential, replacing any
// previous one. The replaced digest is not remembered, so presenting it later is a
// plain mismatch.
func (s *Store) Save(ctx context.Context, subject, digest string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("refresh ttl must be positive")
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	key := s.key(subject)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fieldCurrent, digest)
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Find returns the stored digest for subject.
func (s *Store) Find(ctx context.Context, subject string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	digest, err := s.redis.HGet(ctx, s.key(subject), fieldCurrent).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return digest, nil
}

// Delete removes the subject's record. Deleting an absent record is not an error.
func (s *Store) Delete(ctx context.Context, subject string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.redis.Del(ctx, s.key(subject)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Check reports whether presented is the subject's current digest without
// changing it. Presenting the digest that the last rotation replaced deletes the
// record and returns ErrReused; any other digest returns ErrMismatch.
func (s *Store) Check(ctx context.Context, subject, presented string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	status, err := checkLua.Run(ctx, s.redis, []string{s.key(subject)}, presented).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return statusError(status)
}

// Rotate replaces presented with next only if presented is the current digest, and
// remembers presented as the predecessor. A mismatch changes nothing.
func (s *Store) Rotate(ctx context.Context, subject, presented, next string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("refresh ttl must be positive")
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	status, err := rotateLua.Run(ctx, s.redis, []string{s.key(subject)}, presented, next, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return statusError(status)
}

func statusError(status int64) error {
	switch status {
	case statusOK:
		return nil
	case statusNotFound:
		return ErrNotFound
	case statusMismatch:
		return ErrMismatch
	case statusReused:
		return ErrReused
	default:
		return fmt.Errorf("%w: unexpected script status %d", ErrStoreUnavailable, status)
	}
}
