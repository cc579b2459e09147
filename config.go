package eduAuth

import (
	"fmt"
	"time"

	"github.com/MrEthical07/eduAuth/internal/rate"
	"github.com/MrEthical07/eduAuth/jwt"
	"github.com/MrEthical07/eduAuth/password"
)

// Policy is a named fixed-window rate budget.
type Policy = rate.Policy

// Config is the complete engine configuration. It is copied by WithConfig and
// treated as immutable afterwards.
type Config struct {
	JWT       JWTConfig
	Refresh   RefreshConfig
	Identity  IdentityConfig
	RateLimit RateLimitConfig
	Store     StoreConfig
	Password  PasswordConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

// JWTConfig configures access tokens.
type JWTConfig struct {
	// SigningMethod is "hs256" or "ed25519".
	SigningMethod string
	// Secret is the HS256 key, at least 32 bytes.
	Secret []byte
	// PrivateKey and PublicKey are Ed25519 keys, raw or PEM.
	PrivateKey []byte
	PublicKey  []byte
	KeyID      string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	Leeway     time.Duration
}

type RefreshConfig struct {
	TTL         time.Duration
	RedisPrefix string
}

type IdentityConfig struct {
	RedisPrefix   string
	TTL           time.Duration
	GenerationTTL time.Duration
}

// RateLimitConfig holds the budgets applied by the engine and the middleware.
type RateLimitConfig struct {
	Login     Policy
	Refresh   Policy
	Sensitive Policy
	Default   Policy
}

// StoreConfig bounds every Redis round trip.
type StoreConfig struct {
	OpTimeout time.Duration
}

type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
	MaxLength   int
}

type AuditConfig struct {
	Enabled      bool
	BufferSize   int
	DropIfFull   bool
	FlushTimeout time.Duration
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns production defaults. JWT.Secret (or the Ed25519 keys) must
// still be supplied.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			SigningMethod: string(jwt.MethodHS256),
			Issuer:        "eduauth",
			AccessTTL:     15 * time.Minute,
		},
		Refresh: RefreshConfig{
			TTL:         7 * 24 * time.Hour,
			RedisPrefix: "refresh",
		},
		Identity: IdentityConfig{
			RedisPrefix:   "identity",
			TTL:           10 * time.Minute,
			GenerationTTL: 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Login:     rate.LoginPolicy,
			Refresh:   rate.RefreshPolicy,
			Sensitive: rate.SensitivePolicy,
			Default:   rate.DefaultPolicy,
		},
		Store: StoreConfig{
			OpTimeout: 250 * time.Millisecond,
		},
		Password: PasswordConfig{
			Memory:      pw.Memory,
			Time:        pw.Time,
			Parallelism: pw.Parallelism,
			SaltLength:  pw.SaltLength,
			KeyLength:   pw.KeyLength,
			MinLength:   pw.MinLength,
			MaxLength:   pw.MaxLength,
		},
		Audit: AuditConfig{
			Enabled:      true,
			BufferSize:   1024,
			DropIfFull:   true,
			FlushTimeout: 2 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

// Validate checks cross-field constraints. Key material is checked again by the
// token codec when the engine is built.
func (c *Config) Validate() error {
	switch jwt.SigningMethod(c.JWT.SigningMethod) {
	case jwt.MethodHS256:
		if len(c.JWT.Secret) == 0 {
			return configErr("JWT Secret required for hs256")
		}
	case jwt.MethodEd25519:
		if len(c.JWT.PrivateKey) == 0 || len(c.JWT.PublicKey) == 0 {
			return configErr("JWT PrivateKey and PublicKey required for ed25519")
		}
	default:
		return configErr("unsupported JWT signing method %q", c.JWT.SigningMethod)
	}
	if c.JWT.AccessTTL <= 0 {
		return configErr("JWT AccessTTL must be > 0")
	}
	if c.Refresh.TTL <= c.JWT.AccessTTL {
		return configErr("Refresh TTL must exceed JWT AccessTTL")
	}
	if c.Identity.TTL <= 0 {
		return configErr("Identity TTL must be > 0")
	}
	if c.Identity.GenerationTTL < c.Identity.TTL {
		return configErr("Identity GenerationTTL must be >= Identity TTL")
	}

	// Sub-second so a stalled Redis cannot hold a request open.
	if c.Store.OpTimeout <= 0 || c.Store.OpTimeout >= time.Second {
		return configErr("Store OpTimeout must be within (0, 1s)")
	}

	for name, p := range map[string]Policy{
		"Login":     c.RateLimit.Login,
		"Refresh":   c.RateLimit.Refresh,
		"Sensitive": c.RateLimit.Sensitive,
		"Default":   c.RateLimit.Default,
	} {
		if !p.Valid() {
			return configErr("RateLimit %s policy invalid", name)
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return configErr("Audit BufferSize must be > 0 when enabled")
	}
	if c.Audit.FlushTimeout < 0 {
		return configErr("Audit FlushTimeout must be >= 0")
	}
	return nil
}

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfiguration}, args...)...)
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c PasswordConfig) hasherConfig() password.Config {
	return password.Config{
		Memory:      c.Memory,
		Time:        c.Time,
		Parallelism: c.Parallelism,
		SaltLength:  c.SaltLength,
		KeyLength:   c.KeyLength,
		MinLength:   c.MinLength,
		MaxLength:   c.MaxLength,
	}
}
