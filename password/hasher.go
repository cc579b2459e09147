package password

import (
	"fmt"
)

const (
	minMemoryKB   = 8 * 1024
	minSaltLength = 16
	minKeyLength  = 16
)

// Config holds argon2id parameters and plaintext length bounds.
type Config struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
	MaxLength   int
}

// DefaultConfig returns the production parameters.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
		MinLength:   8,
		MaxLength:   128,
	}
}

// Hasher hashes with argon2id and verifies argon2id or legacy bcrypt.
type Hasher struct {
	config Config
	params argonParams
}

// New validates cfg and returns a Hasher.
func New(cfg Config) (*Hasher, error) {
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, fmt.Errorf("%w: memory must be >= %d KiB", ErrConfiguration, minMemoryKB)
	case cfg.Time < 1:
		return nil, fmt.Errorf("%w: time must be >= 1", ErrConfiguration)
	case cfg.Parallelism < 1:
		return nil, fmt.Errorf("%w: parallelism must be >= 1", ErrConfiguration)
	case cfg.SaltLength < minSaltLength:
		return nil, fmt.Errorf("%w: salt length must be >= %d", ErrConfiguration, minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return nil, fmt.Errorf("%w: key length must be >= %d", ErrConfiguration, minKeyLength)
	case cfg.MinLength < 1 || cfg.MaxLength < cfg.MinLength:
		return nil, fmt.Errorf("%w: invalid password length bounds", ErrConfiguration)
	}

	return &Hasher{
		config: cfg,
		params: argonParams{
			memory:      cfg.Memory,
			time:        cfg.Time,
			parallelism: cfg.Parallelism,
			keyLength:   cfg.KeyLength,
		},
	}, nil
}

// CheckPolicy reports whether plain is an acceptable new password. Bytes are
// counted as given, without Unicode normalization.
func (h *Hasher) CheckPolicy(plain string) error {
	if len(plain) < h.config.MinLength {
		return fmt.Errorf("%w: must be at least %d bytes", ErrPolicy, h.config.MinLength)
	}
	if len(plain) > h.config.MaxLength {
		return fmt.Errorf("%w: must be at most %d bytes", ErrPolicy, h.config.MaxLength)
	}
	return nil
}

// Hash returns an argon2id PHC string for plain.
func (h *Hasher) Hash(plain string) (string, error) {
	if err := h.CheckPolicy(plain); err != nil {
		return "", err
	}
	return hashArgon2(plain, h.params, h.config.SaltLength)
}

// Verify checks plain against encoded. needsRehash is only meaningful when ok is
// true.
func (h *Hasher) Verify(plain, encoded string) (ok bool, needsRehash bool, err error) {
	if len(plain) > h.config.MaxLength {
		return false, false, nil
	}

	if isBcrypt(encoded) {
		ok, err := verifyBcrypt(plain, encoded)
		return ok, ok, err
	}

	parsed, err := parseArgon2(encoded)
	if err != nil {
		return false, false, err
	}
	if !verifyArgon2(plain, parsed) {
		return false, false, nil
	}
	return true, h.weaker(parsed.params), nil
}

func (h *Hasher) weaker(p argonParams) bool {
	return p.memory < h.params.memory ||
		p.time < h.params.time ||
		p.parallelism < h.params.parallelism ||
		p.keyLength != h.params.keyLength
}
