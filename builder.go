package eduAuth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/eduAuth/accounts"
	"github.com/MrEthical07/eduAuth/identity"
	"github.com/MrEthical07/eduAuth/internal/audit"
	"github.com/MrEthical07/eduAuth/internal/logging"
	"github.com/MrEthical07/eduAuth/internal/metrics"
	"github.com/MrEthical07/eduAuth/internal/rate"
	"github.com/MrEthical07/eduAuth/jwt"
	"github.com/MrEthical07/eduAuth/password"
	"github.com/MrEthical07/eduAuth/refresh"
	"github.com/MrEthical07/eduAuth/session"
	"github.com/redis/go-redis/v9"
)

// dummyPassword is hashed once at build time; logins for unknown emails verify
// against it so both paths cost one argon2 evaluation.
const dummyPassword = "eduauth-timing-equaliser"

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	accounts  accounts.Store
	logger    logging.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client shared by the refresh store, rate limiter and
// identity cache.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accounts = store
	return b
}

func (b *Builder) WithLogger(logger logging.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithClock overrides the clock used to stamp and check access tokens.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires the engine. Every configuration
// failure wraps ErrConfiguration.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, configErr("builder already used")
	}

	cfg := cloneConfig(b.config)
	if b.redis == nil {
		return nil, configErr("redis client required")
	}
	if b.accounts == nil {
		return nil, configErr("account store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.OrNop(b.logger)

	codec, err := jwt.NewCodec(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		Secret:        cloneBytes(cfg.JWT.Secret),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		KeyID:         cfg.JWT.KeyID,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		Now:           b.now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	hasher, err := password.New(cfg.Password.hasherConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	engine := &Engine{
		config:    cfg,
		codec:     codec,
		accounts:  b.accounts,
		hasher:    hasher,
		dummyHash: dummyHash,
		logger:    logger,
		metrics: metrics.New(metrics.Config{
			Enabled:                 cfg.Metrics.Enabled,
			EnableLatencyHistograms: cfg.Metrics.EnableLatencyHistograms,
		}),
	}

	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:      cfg.Audit.Enabled,
		BufferSize:   cfg.Audit.BufferSize,
		DropIfFull:   cfg.Audit.DropIfFull,
		FlushTimeout: cfg.Audit.FlushTimeout,
	}, b.auditSink)

	engine.limiter = rate.New(b.redis, rate.Config{
		OpTimeout:    cfg.Store.OpTimeout,
		OnStoreError: engine.metricHook(MetricRateLimitStoreError),
	}, logger.With("component", "ratelimit"))

	engine.identities = identity.NewCache(b.redis, accountLoader{store: b.accounts}, identity.Config{
		Prefix:        cfg.Identity.RedisPrefix,
		TTL:           cfg.Identity.TTL,
		GenerationTTL: cfg.Identity.GenerationTTL,
		OpTimeout:     cfg.Store.OpTimeout,
		Hooks: identity.Hooks{
			Hit:        engine.metricHook(MetricIdentityCacheHit),
			Miss:       engine.metricHook(MetricIdentityCacheMiss),
			StoreError: engine.metricHook(MetricIdentityCacheStoreError),
		},
	}, logger.With("component", "identity"))

	engine.sessions = session.NewService(session.Deps{
		Codec: codec,
		Store: refresh.NewStore(b.redis, refresh.StoreConfig{
			Prefix:    cfg.Refresh.RedisPrefix,
			OpTimeout: cfg.Store.OpTimeout,
		}),
	}, session.Config{
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.Refresh.TTL,
	})

	b.built = true
	return engine, nil
}

// accountLoader reads identities from the authoritative account store.
type accountLoader struct {
	store accounts.Store
}

func (l accountLoader) LoadIdentity(ctx context.Context, subject string) (identity.Record, error) {
	acct, err := l.store.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return identity.Record{}, identity.ErrNotFound
		}
		return identity.Record{}, err
	}
	return identity.Record{
		Subject:      acct.ID,
		Email:        acct.Email,
		PasswordHash: acct.PasswordHash,
		Role:         acct.Role,
		Deleted:      acct.Deleted,
		Version:      acct.Version,
	}, nil
}
