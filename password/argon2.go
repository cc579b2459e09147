package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2ID = "argon2id"

type argonParams struct {
	memory      uint32
	time        uint32
	parallelism uint8
	keyLength   uint32
}

type argonHash struct {
	params argonParams
	salt   []byte
	sum    []byte
}

func hashArgon2(plain string, p argonParams, saltLength uint32) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	sum := argon2.IDKey([]byte(plain), salt, p.time, p.memory, p.parallelism, p.keyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2ID, argon2.Version, p.memory, p.time, p.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

func verifyArgon2(plain string, h argonHash) bool {
	sum := argon2.IDKey([]byte(plain), h.salt, h.params.time, h.params.memory, h.params.parallelism, h.params.keyLength)
	return subtle.ConstantTimeCompare(sum, h.sum) == 1
}

func parseArgon2(encoded string) (argonHash, error) {
	// "", algorithm, version, params, salt, sum
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != argon2ID {
		return argonHash{}, ErrMalformedHash
	}

	version, ok := strings.CutPrefix(fields[2], "v=")
	if !ok {
		return argonHash{}, ErrMalformedHash
	}
	if v, err := strconv.Atoi(version); err != nil || v != argon2.Version {
		return argonHash{}, ErrMalformedHash
	}

	var h argonHash
	var seen int
	for _, kv := range strings.Split(fields[3], ",") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return argonHash{}, ErrMalformedHash
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil || n == 0 {
			return argonHash{}, ErrMalformedHash
		}
		switch name {
		case "m":
			h.params.memory = uint32(n)
		case "t":
			h.params.time = uint32(n)
		case "p":
			if n > 255 {
				return argonHash{}, ErrMalformedHash
			}
			h.params.parallelism = uint8(n)
		default:
			return argonHash{}, ErrMalformedHash
		}
		seen++
	}
	if seen != 3 {
		return argonHash{}, ErrMalformedHash
	}

	var err error
	if h.salt, err = decodeB64(fields[4]); err != nil || len(h.salt) < minSaltLength {
		return argonHash{}, ErrMalformedHash
	}
	if h.sum, err = decodeB64(fields[5]); err != nil || len(h.sum) == 0 {
		return argonHash{}, ErrMalformedHash
	}
	h.params.keyLength = uint32(len(h.sum))

	return h, nil
}

// decodeB64 accepts both unpadded (PHC) and padded standard base64.
func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}
