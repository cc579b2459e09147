package envconfig

import (
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	eduAuth "github.com/MrEthical07/eduAuth"
	"github.com/joho/godotenv"
)

// ErrInvalidSetting wraps every malformed or missing value.
var ErrInvalidSetting = errors.New("invalid setting")

const envPrefix = "EDUAUTH_"

// Settings is everything the server binary needs.
type Settings struct {
	Auth eduAuth.Config

	HTTPAddr       string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	DatabaseURL    string
	LogLevel       string
	TrustForwarded bool
	// Dev runs against in-process Redis and account stores.
	Dev bool
}

// Source locates the inputs. Zero fields take the process defaults.
type Source struct {
	// EnvFile is read if it exists; a missing file is not an error.
	EnvFile string
	Lookup  func(string) (string, bool)
	Args    []string
	// Output receives flag usage; nil discards it.
	Output io.Writer
}

// Defaults returns development-friendly settings without key material.
func Defaults() Settings {
	return Settings{
		Auth:      eduAuth.DefaultConfig(),
		HTTPAddr:  ":8080",
		RedisAddr: "localhost:6379",
		LogLevel:  "info",
	}
}

// Load applies every layer and validates the result.
func Load(src Source) (Settings, error) {
	s := Defaults()

	lookup, err := layeredLookup(src)
	if err != nil {
		return Settings{}, err
	}
	if err := s.applyEnv(lookup); err != nil {
		return Settings{}, err
	}
	if err := s.applyFlags(src.Args, src.Output); err != nil {
		return Settings{}, err
	}
	if err := s.finish(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// layeredLookup resolves a key from the environment first, then from the .env
// file.
func layeredLookup(src Source) (func(string) (string, bool), error) {
	envLookup := src.Lookup
	if envLookup == nil {
		envLookup = os.LookupEnv
	}

	fileValues := map[string]string{}
	if src.EnvFile != "" {
		values, err := godotenv.Read(src.EnvFile)
		switch {
		case err == nil:
			fileValues = values
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidSetting, src.EnvFile, err)
		}
	}

	return func(key string) (string, bool) {
		if v, ok := envLookup(key); ok {
			return v, true
		}
		v, ok := fileValues[key]
		return v, ok
	}, nil
}

func (s *Settings) applyEnv(lookup func(string) (string, bool)) error {
	r := reader{lookup: lookup}

	r.str("HTTP_ADDR", &s.HTTPAddr)
	r.str("REDIS_ADDR", &s.RedisAddr)
	r.str("REDIS_PASSWORD", &s.RedisPassword)
	r.integer("REDIS_DB", &s.RedisDB)
	r.str("DATABASE_URL", &s.DatabaseURL)
	r.str("LOG_LEVEL", &s.LogLevel)
	r.boolean("TRUST_FORWARDED", &s.TrustForwarded)
	r.boolean("DEV", &s.Dev)

	auth := &s.Auth
	r.str("JWT_SIGNING_METHOD", &auth.JWT.SigningMethod)
	r.bytes("JWT_SECRET", &auth.JWT.Secret)
	r.bytes("JWT_PRIVATE_KEY", &auth.JWT.PrivateKey)
	r.bytes("JWT_PUBLIC_KEY", &auth.JWT.PublicKey)
	r.str("JWT_KEY_ID", &auth.JWT.KeyID)
	r.str("JWT_ISSUER", &auth.JWT.Issuer)
	r.str("JWT_AUDIENCE", &auth.JWT.Audience)
	r.duration("ACCESS_TTL", &auth.JWT.AccessTTL)
	r.duration("JWT_LEEWAY", &auth.JWT.Leeway)
	r.duration("REFRESH_TTL", &auth.Refresh.TTL)
	r.duration("IDENTITY_TTL", &auth.Identity.TTL)
	r.duration("STORE_TIMEOUT", &auth.Store.OpTimeout)
	r.integer("LOGIN_LIMIT", &auth.RateLimit.Login.Limit)
	r.integer("REFRESH_LIMIT", &auth.RateLimit.Refresh.Limit)
	r.integer("SENSITIVE_LIMIT", &auth.RateLimit.Sensitive.Limit)
	r.integer("DEFAULT_LIMIT", &auth.RateLimit.Default.Limit)
	r.boolean("AUDIT_ENABLED", &auth.Audit.Enabled)
	r.duration("AUDIT_FLUSH_TIMEOUT", &auth.Audit.FlushTimeout)
	r.boolean("METRICS_ENABLED", &auth.Metrics.Enabled)

	return r.err
}

func (s *Settings) applyFlags(args []string, out io.Writer) error {
	flags := flag.NewFlagSet("eduauth-server", flag.ContinueOnError)
	if out == nil {
		out = io.Discard
	}
	flags.SetOutput(out)

	flags.StringVar(&s.HTTPAddr, "addr", s.HTTPAddr, "HTTP listen address")
	flags.StringVar(&s.RedisAddr, "redis", s.RedisAddr, "Redis address")
	flags.StringVar(&s.DatabaseURL, "db", s.DatabaseURL, "PostgreSQL URL")
	flags.StringVar(&s.LogLevel, "log-level", s.LogLevel, "debug, info, warn or error")
	flags.BoolVar(&s.Dev, "dev", s.Dev, "run with in-process Redis and account store")
	flags.BoolVar(&s.TrustForwarded, "trust-forwarded", s.TrustForwarded, "take the client IP from X-Forwarded-For")
	secret := flags.String("secret", "", "JWT HS256 secret (overrides EDUAUTH_JWT_SECRET)")

	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSetting, err)
	}
	if *secret != "" {
		s.Auth.JWT.Secret = []byte(*secret)
	}
	return nil
}

func (s *Settings) finish() error {
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log level %q", ErrInvalidSetting, s.LogLevel)
	}

	if s.Dev {
		if len(s.Auth.JWT.Secret) == 0 && s.Auth.JWT.SigningMethod == "hs256" {
			secret := make([]byte, 32)
			if _, err := rand.Read(secret); err != nil {
				return fmt.Errorf("generate dev secret: %w", err)
			}
			s.Auth.JWT.Secret = secret
		}
	} else {
		if s.DatabaseURL == "" {
			return fmt.Errorf("%w: %sDATABASE_URL required outside dev mode", ErrInvalidSetting, envPrefix)
		}
		if s.RedisAddr == "" {
			return fmt.Errorf("%w: %sREDIS_ADDR required outside dev mode", ErrInvalidSetting, envPrefix)
		}
	}

	if err := s.Auth.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSetting, err)
	}
	return nil
}

// reader parses EDUAUTH_* values, keeping the first error.
type reader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *reader) get(key string) (string, bool) {
	if r.err != nil {
		return "", false
	}
	v, ok := r.lookup(envPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r *reader) fail(key string, err error) {
	r.err = fmt.Errorf("%w: %s%s: %v", ErrInvalidSetting, envPrefix, key, err)
}

func (r *reader) str(key string, dst *string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

func (r *reader) bytes(key string, dst *[]byte) {
	if v, ok := r.get(key); ok {
		*dst = []byte(v)
	}
}

func (r *reader) integer(key string, dst *int) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, err)
		return
	}
	*dst = n
}

func (r *reader) boolean(key string, dst *bool) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, err)
		return
	}
	*dst = b
}

func (r *reader) duration(key string, dst *time.Duration) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, err)
		return
	}
	*dst = d
}
