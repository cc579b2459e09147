package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/eduAuth/refresh"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	tokenTypeBearer   = "Bearer"
)

var (
	// ErrInvalidRefreshToken covers malformed, absent, superseded and revoked tokens.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrRefreshReuse marks a refresh failure caused by replaying a rotated-out token.
	// The subject's record has been revoked.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
	// ErrStoreUnavailable wraps refresh store failures.
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// TokenIssuer mints access tokens.
type TokenIssuer interface {
	Issue(subject, role string, version uint32, ttl time.Duration) (string, error)
}

// RecordStore persists refresh digests.
type RecordStore interface {
	Save(ctx context.Context, subject, digest string, ttl time.Duration) error
	Check(ctx context.Context, subject, presented string) error
	Rotate(ctx context.Context, subject, presented, next string, ttl time.Duration) error
	Delete(ctx context.Context, subject string) error
}

// ReissueFunc returns the live role and version for subject, or an error when the
// subject may no longer hold a session.
type ReissueFunc func(ctx context.Context, subject string) (role string, version uint32, err error)

// TokenPair is the credential pair handed to clients.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Deps are the collaborators of a Service.
type Deps struct {
	Codec TokenIssuer
	Store RecordStore
}

// Config holds token lifetimes.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Service orchestrates the token codec and the refresh store.
type Service struct {
	codec  TokenIssuer
	store  RecordStore
	config Config
}

// NewService creates a Service. Zero lifetimes take defaults.
func NewService(deps Deps, cfg Config) *Service {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	return &Service{
		codec:  deps.Codec,
		store:  deps.Store,
		config: cfg,
	}
}

// Login issues a new pair and makes its refresh token the subject's only valid one.
func (s *Service) Login(ctx context.Context, subject, role string, version uint32) (TokenPair, error) {
	access, err := s.codec.Issue(subject, role, version, s.config.AccessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}

	token, err := refresh.NewToken(subject)
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.store.Save(ctx, subject, refresh.Digest(token), s.config.RefreshTTL); err != nil {
		return TokenPair{}, mapStoreError(err)
	}

	return s.pair(access, token), nil
}

// Refresh exchanges a current refresh token for a new pair. The stored record is
// checked before reissue runs, so an unknown or stale token never reaches the
// account data. Replaying a token that was already rotated out revokes the record.
func (s *Service) Refresh(ctx context.Context, presented string, reissue ReissueFunc) (TokenPair, error) {
	subject, err := refresh.ParseToken(presented)
	if err != nil {
		return TokenPair{}, ErrInvalidRefreshToken
	}
	digest := refresh.Digest(presented)

	if err := s.store.Check(ctx, subject, digest); err != nil {
		return TokenPair{}, recordError(err)
	}

	role, version, err := reissue(ctx, subject)
	if err != nil {
		return TokenPair{}, err
	}

	access, err := s.codec.Issue(subject, role, version, s.config.AccessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}

	next, err := refresh.NewToken(subject)
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}

	// A concurrent refresh with the same token may have rotated first; losing that
	// race is a plain mismatch.
	if err := s.store.Rotate(ctx, subject, digest, refresh.Digest(next), s.config.RefreshTTL); err != nil {
		return TokenPair{}, recordError(err)
	}
	return s.pair(access, next), nil
}

// Revoke deletes the subject's refresh record. Revoking twice is not an error.
func (s *Service) Revoke(ctx context.Context, subject string) error {
	if err := s.store.Delete(ctx, subject); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// SubjectOf returns the subject a refresh token claims, without checking it.
func SubjectOf(presented string) (string, bool) {
	subject, err := refresh.ParseToken(presented)
	return subject, err == nil
}

func (s *Service) pair(access, refreshToken string) TokenPair {
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(s.config.AccessTTL / time.Second),
	}
}

func recordError(err error) error {
	switch {
	case errors.Is(err, refresh.ErrReused):
		return errors.Join(ErrInvalidRefreshToken, ErrRefreshReuse)
	case errors.Is(err, refresh.ErrNotFound), errors.Is(err, refresh.ErrMismatch):
		return ErrInvalidRefreshToken
	default:
		return mapStoreError(err)
	}
}

func mapStoreError(err error) error {
	if errors.Is(err, refresh.ErrStoreUnavailable) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
