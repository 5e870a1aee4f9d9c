package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id cost parameters. Tuned for an API server handling occasional
// logins rather than bulk verification: 64 MiB memory makes large-scale
// offline guessing expensive while a single verify stays well under 100ms.
const (
	argonIterations = 3
	argonMemory     = 64 * 1024 // KiB
	argonThreads    = 1
	argonKeyLen     = 32
	argonSaltLen    = 16
)

// HashPassword derives an Argon2id hash and encodes it as a PHC string,
// e.g. $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>. The parameters are
// embedded so they can be raised later without invalidating stored hashes.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, argonIterations, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory, argonIterations, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword re-derives the key with the parameters stored in the
// PHC string and compares in constant time. A wrong password is
// (false, nil); an error means the stored hash itself is unusable.
// Callers must check the boolean, not just the error.
func VerifyPassword(password, encodedHash string) (bool, error) {
	salt, key, params, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, params.iterations, params.memory, params.threads, uint32(len(key))) //nolint:gosec // G115: hash length always fits uint32

	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

type argonParams struct {
	iterations uint32
	memory     uint32
	threads    uint8
}

// decodePHC splits a $argon2id$ PHC string into its salt, derived key and
// cost parameters. Anything that is not argon2id is refused outright.
func decodePHC(encoded string) (salt, key []byte, params argonParams, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 { //nolint:mnd // PHC format has exactly 6 $-delimited parts
		return nil, nil, params, fmt.Errorf("invalid PHC hash format")
	}

	if parts[1] != "argon2id" {
		return nil, nil, params, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return nil, nil, params, fmt.Errorf("parsing version: %w", err)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.iterations, &params.threads); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return nil, nil, params, fmt.Errorf("parsing parameters: %w", err)
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decoding salt: %w", err)
	}

	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decoding hash: %w", err)
	}

	return salt, key, params, nil
}
