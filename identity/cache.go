package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/eduAuth/internal/logging"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	defaultPrefix        = "identity"
	defaultTTL           = 10 * time.Minute
	defaultGenerationTTL = 24 * time.Hour
	defaultOpTimeout     = 250 * time.Millisecond
)

// KEYS[1] entry; KEYS[2] generation; ARGV[1] observed generation; ARGV[2] payload; ARGV[3] ttl ms.
const populateScript = `
local gen = redis.call("GET", KEYS[2]) or "0"
if gen ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`

var populateLua = redis.NewScript(populateScript)

// Hooks observe cache traffic. Nil fields are skipped.
type Hooks struct {
	Hit        func()
	Miss       func()
	StoreError func()
}

// Config configures a Cache.
type Config struct {
	Prefix        string
	TTL           time.Duration
	GenerationTTL time.Duration
	OpTimeout     time.Duration
	Hooks         Hooks
}

// Cache is a Redis read-through cache in front of a Loader.
type Cache struct {
	redis  redis.UniversalClient
	loader Loader
	config Config
	logger logging.Logger
}

// NewCache creates a Cache. Zero-valued config fields take defaults.
func NewCache(rdb redis.UniversalClient, loader Loader, cfg Config, logger logging.Logger) *Cache {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.GenerationTTL < cfg.TTL {
		cfg.GenerationTTL = defaultGenerationTTL
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = defaultOpTimeout
	}
	return &Cache{
		redis:  rdb,
		loader: loader,
		config: cfg,
		logger: logging.OrNop(logger),
	}
}

func (c *Cache) entryKey(subject string) string {
	return c.config.Prefix + ":" + subject
}

func (c *Cache) generationKey(subject string) string {
	return c.config.Prefix + ":gen:" + subject
}

// Lookup returns the identity for subject, loading and caching it on a miss.
func (c *Cache) Lookup(ctx context.Context, subject string) (Record, error) {
	if subject == "" {
		return Record{}, ErrNotFound
	}

	readCtx, cancel := context.WithTimeout(ctx, c.config.OpTimeout)
	values, err := c.redis.MGet(readCtx, c.entryKey(subject), c.generationKey(subject)).Result()
	cancel()
	if err != nil {
		c.storeError()
		return Record{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if raw, ok := values[0].(string); ok {
		var rec Record
		if err := msgpack.Unmarshal([]byte(raw), &rec); err == nil && rec.Subject == subject {
			c.hook(c.config.Hooks.Hit)
			return rec, nil
		}
		c.logger.Warn(ctx, "identity cache entry undecodable, reloading", "subject", subject)
	}
	c.hook(c.config.Hooks.Miss)

	generation := "0"
	if g, ok := values[1].(string); ok {
		generation = g
	}

	rec, err := c.loader.LoadIdentity(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("load identity: %w", err)
	}
	rec.Subject = subject

	c.populate(ctx, subject, generation, rec)
	return rec, nil
}

// Invalidate removes the cached entry and advances the subject's generation so no
// in-flight lookup can repopulate it with a value read before this call.
func (c *Cache) Invalidate(ctx context.Context, subject string) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.OpTimeout)
	defer cancel()

	genKey := c.generationKey(subject)
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.entryKey(subject))
		pipe.Incr(ctx, genKey)
		pipe.PExpire(ctx, genKey, c.config.GenerationTTL)
		return nil
	})
	if err != nil {
		c.storeError()
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (c *Cache) populate(ctx context.Context, subject, generation string, rec Record) {
	payload, err := msgpack.Marshal(&rec)
	if err != nil {
		c.logger.Error(ctx, "identity cache encode failed", "subject", subject, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.OpTimeout)
	defer cancel()

	keys := []string{c.entryKey(subject), c.generationKey(subject)}
	stored, err := populateLua.Run(ctx, c.redis, keys, generation, payload, c.config.TTL.Milliseconds()).Int64()
	if err != nil {
		c.logger.Warn(ctx, "identity cache populate failed", "subject", subject, "error", err)
		return
	}
	if stored == 0 {
		c.logger.Debug(ctx, "identity cache populate skipped, generation moved", "subject", subject)
	}
}

func (c *Cache) storeError() {
	c.hook(c.config.Hooks.StoreError)
}

func (c *Cache) hook(fn func()) {
	if fn != nil {
		fn()
	}
}
