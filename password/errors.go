package password

import "errors"

var (
	// ErrPolicy is returned when a plaintext password is outside the length bounds.
	ErrPolicy = errors.New("password policy violation")
	// ErrMalformedHash is returned when a stored hash cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrConfiguration is returned by New for unusable parameters.
	ErrConfiguration = errors.New("password configuration error")
)
