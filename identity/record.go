package identity

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the authoritative store has no such subject.
	ErrNotFound = errors.New("identity not found")
	// ErrStoreUnavailable wraps cache failures on the lookup path.
	ErrStoreUnavailable = errors.New("identity store unavailable")
)

// Record is the cached view of one account.
type Record struct {
	Subject      string `msgpack:"s"`
	Email        string `msgpack:"e"`
	PasswordHash string `msgpack:"h"`
	Role         string `msgpack:"r"`
	Deleted      bool   `msgpack:"d"`
	Version      uint32 `msgpack:"v"`
}

// Loader reads an identity from the authoritative store.
type Loader interface {
	LoadIdentity(ctx context.Context, subject string) (Record, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, subject string) (Record, error)

// LoadIdentity calls f.
func (f LoaderFunc) LoadIdentity(ctx context.Context, subject string) (Record, error) {
	return f(ctx, subject)
}
