package refresh

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

const (
	secretSize       = 32
	maxSubjectLength = 128
)

// ErrMalformedToken is returned by ParseToken for any structurally invalid token.
var ErrMalformedToken = errors.New("malformed refresh token")

// NewToken returns a fresh opaque refresh token for subject.
func NewToken(subject string) (string, error) {
	if subject == "" || len(subject) > maxSubjectLength {
		return "", errors.New("invalid refresh subject")
	}

	var secret [secretSize]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString([]byte(subject)) + "." +
		base64.RawURLEncoding.EncodeToString(secret[:]), nil
}

// ParseToken extracts the subject from a refresh token and checks its shape. It
// does not prove the token is current; only the store can do that.
func ParseToken(token string) (string, error) {
	encodedSubject, encodedSecret, ok := strings.Cut(token, ".")
	if !ok || encodedSubject == "" || encodedSecret == "" {
		return "", ErrMalformedToken
	}

	subject, err := base64.RawURLEncoding.Strict().DecodeString(encodedSubject)
	if err != nil || len(subject) == 0 || len(subject) > maxSubjectLength {
		return "", ErrMalformedToken
	}

	secret, err := base64.RawURLEncoding.Strict().DecodeString(encodedSecret)
	if err != nil || len(secret) != secretSize {
		return "", ErrMalformedToken
	}

	return string(subject), nil
}

// Digest is the value persisted for a token: hex(SHA-256(token)).
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
