package accounts

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Roles known to the marketplace.
const (
	RoleUser       = "USER"
	RoleInstructor = "INSTRUCTOR"
	RoleAdmin      = "ADMIN"
)

var (
	ErrNotFound       = errors.New("account not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrUnavailable    = errors.New("account store unavailable")
)

// Account is one marketplace account.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	Deleted      bool
	Version      uint32
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAccount is the input to Store.Create.
type NewAccount struct {
	Email        string
	PasswordHash string
	Role         string
}

// Store persists accounts. Every mutating method bumps Version and returns the
// updated account.
type Store interface {
	Create(ctx context.Context, in NewAccount) (Account, error)
	GetByID(ctx context.Context, id string) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) (Account, error)
	UpdateRole(ctx context.Context, id, role string) (Account, error)
	SetDeleted(ctx context.Context, id string, deleted bool) (Account, error)
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleInstructor, RoleAdmin:
		return true
	default:
		return false
	}
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
