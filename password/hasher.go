package password

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// DefaultMaxPasswordBytes caps hashing input when a config leaves the limit unset.
const DefaultMaxPasswordBytes = 1024

const (
	AlgorithmArgon2id = "argon2id"
	AlgorithmBcrypt   = "bcrypt"
)

// ErrPasswordTooLong is returned when the input exceeds the configured byte cap.
var ErrPasswordTooLong = errors.New("password exceeds maximum length")

// ErrEmptyPassword is returned when Hash is given an empty input.
var ErrEmptyPassword = errors.New("password must not be empty")

// Hasher is a one-way hashing primitive with a fixed cost chosen at construction.
//
// Verify returns (false, nil) for a mismatch and a non-nil error only when the
// encoded hash cannot be interpreted.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, encoded string) (bool, error)
}

// Config selects and tunes a Hasher.
type Config struct {
	Algorithm        string
	Argon2           Argon2Config
	BcryptCost       int
	MaxPasswordBytes int
}

// DefaultConfig returns argon2id with interactive-login parameters.
func DefaultConfig() Config {
	return Config{
		Algorithm: AlgorithmArgon2id,
		Argon2: Argon2Config{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		BcryptCost:       12,
		MaxPasswordBytes: DefaultMaxPasswordBytes,
	}
}

// New builds the Hasher named by cfg.Algorithm.
func New(cfg Config) (Hasher, error) {
	switch cfg.Algorithm {
	case "", AlgorithmArgon2id:
		a := cfg.Argon2
		if a.MaxPasswordBytes == 0 {
			a.MaxPasswordBytes = cfg.MaxPasswordBytes
		}
		return NewArgon2(a)
	case AlgorithmBcrypt:
		return NewBcrypt(cfg.BcryptCost), nil
	default:
		return nil, fmt.Errorf("unsupported password algorithm %q", cfg.Algorithm)
	}
}

// TokenDigest returns the hex SHA-256 of token. Bearer tokens are longer than
// bcrypt accepts, so they are digested before reaching a Hasher.
func TokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func checkLength(plain string, max int) error {
	if max <= 0 {
		max = DefaultMaxPasswordBytes
	}
	if len(plain) > max {
		return ErrPasswordTooLong
	}
	return nil
}
