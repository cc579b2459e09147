package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the JWS algorithm.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

const minHMACSecretSize = 32

var (
	// ErrConfiguration is returned by NewCodec when the codec cannot be built.
	ErrConfiguration = errors.New("jwt configuration error")
	// ErrInvalidToken is the single verification failure visible to callers.
	ErrInvalidToken = errors.New("invalid token")
)

// Reason classifies a verification failure for logging.
type Reason string

const (
	ReasonMalformed Reason = "malformed"
	ReasonSignature Reason = "signature"
	ReasonExpired   Reason = "expired"
	ReasonAlgorithm Reason = "algorithm"
	ReasonClaims    Reason = "claims"
)

// InvalidTokenError wraps ErrInvalidToken with the internal cause.
type InvalidTokenError struct {
	Reason Reason
	Err    error
}

func (e *InvalidTokenError) Error() string {
	return "invalid token: " + string(e.Reason)
}

func (e *InvalidTokenError) Unwrap() []error {
	return []error{ErrInvalidToken, e.Err}
}

// ReasonOf extracts the failure reason from a Verify error, or "" when err did not
// come from Verify.
func ReasonOf(err error) Reason {
	var invalid *InvalidTokenError
	if errors.As(err, &invalid) {
		return invalid.Reason
	}
	return ""
}

// Config configures a Codec. It is validated once by NewCodec and then treated as
// immutable.
type Config struct {
	SigningMethod SigningMethod
	// Secret is the HS256 key.
	Secret []byte
	// PrivateKey / PublicKey are Ed25519 keys, raw or PEM.
	PrivateKey []byte
	PublicKey  []byte
	KeyID      string
	Issuer     string
	Audience   string
	Leeway     time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Claims is the verified content of an access token.
type Claims struct {
	Subject   string
	Role      string
	Version   uint32
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type accessClaims struct {
	Role    string `json:"role"`
	Version uint32 `json:"av,omitempty"`
	jwt.RegisteredClaims
}

// Codec issues and verifies access tokens. It is safe for concurrent use.
type Codec struct {
	config Config
	parser *jwt.Parser
}

// NewCodec validates cfg and returns a Codec. Every error wraps ErrConfiguration so
// the process can refuse to start instead of failing at request time.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, fmt.Errorf("%w: leeway must be within [0, 2m]", ErrConfiguration)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Secret) == 0 {
			return nil, fmt.Errorf("%w: signing secret is not configured", ErrConfiguration)
		}
		if len(cfg.Secret) < minHMACSecretSize {
			return nil, fmt.Errorf("%w: hs256 secret must be at least %d bytes", ErrConfiguration, minHMACSecretSize)
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) == 0 || len(cfg.PublicKey) == 0 {
			return nil, fmt.Errorf("%w: ed25519 requires private and public key", ErrConfiguration)
		}
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported signing method %q", ErrConfiguration, cfg.SigningMethod)
	}

	c := &Codec{config: cfg}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		options = append(options, jwt.WithAudience(cfg.Audience))
	}
	c.parser = jwt.NewParser(options...)

	return c, nil
}

// Issue signs a token for subject/role/version that expires after ttl.
func (c *Codec) Issue(subject, role string, version uint32, ttl time.Duration) (string, error) {
	if subject == "" || role == "" {
		return "", errors.New("subject and role are required")
	}
	if ttl <= 0 {
		return "", errors.New("ttl must be positive")
	}

	now := c.config.Now()
	claims := accessClaims{
		Role:    role,
		Version: version,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if c.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{c.config.Audience}
	}

	token := jwt.NewWithClaims(c.method(), claims)
	if c.config.KeyID != "" {
		token.Header["kid"] = c.config.KeyID
	}

	key, err := c.signKey()
	if err != nil {
		return "", err
	}
	return token.SignedString(key)
}

// Verify checks signature, algorithm, expiry and required claims. Every failure
// matches ErrInvalidToken.
func (c *Codec) Verify(tokenStr string) (Claims, error) {
	if tokenStr == "" {
		return Claims{}, invalid(ReasonMalformed, errors.New("empty token"))
	}

	claims := &accessClaims{}
	token, err := c.parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != c.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if c.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != c.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return c.verifyKey()
	})
	if err != nil {
		return Claims{}, invalid(classify(err), err)
	}
	if !token.Valid {
		return Claims{}, invalid(ReasonClaims, jwt.ErrTokenInvalidClaims)
	}
	if claims.Subject == "" || claims.Role == "" {
		return Claims{}, invalid(ReasonClaims, errors.New("missing subject or role"))
	}

	out := Claims{
		Subject: claims.Subject,
		Role:    claims.Role,
		Version: claims.Version,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func invalid(reason Reason, err error) error {
	return &InvalidTokenError{Reason: reason, Err: err}
}

func classify(err error) Reason {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ReasonMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		// WithValidMethods reports a disallowed alg as a signature failure.
		if strings.Contains(err.Error(), "signing method") {
			return ReasonAlgorithm
		}
		return ReasonSignature
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonAlgorithm
	default:
		return ReasonClaims
	}
}

func (c *Codec) method() jwt.SigningMethod {
	if c.config.SigningMethod == MethodEd25519 {
		return jwt.SigningMethodEdDSA
	}
	return jwt.SigningMethodHS256
}

func (c *Codec) signKey() (interface{}, error) {
	if c.config.SigningMethod == MethodEd25519 {
		return parseEdPrivateKey(c.config.PrivateKey)
	}
	return c.config.Secret, nil
}

func (c *Codec) verifyKey() (interface{}, error) {
	if c.config.SigningMethod == MethodEd25519 {
		return parseEdPublicKey(c.config.PublicKey)
	}
	return c.config.Secret, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
