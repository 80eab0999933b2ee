package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/crypto"
)

// MinSecretLength is the shortest accepted cookie secret.
const MinSecretLength = 32

var (
	// ErrInvalidSeal is returned when a cookie value cannot be opened with any key.
	ErrInvalidSeal = errors.New("session: invalid cookie seal")
	// ErrNoSecret is returned when a sealer is built without secrets.
	ErrNoSecret = errors.New("session: cookie secret is required")
)

// SealerOption customises NewSealer.
type SealerOption func(*sealerOptions)

type sealerOptions struct {
	params crypto.Argon2Parameters
}

// WithArgon2Parameters overrides the key derivation cost.
func WithArgon2Parameters(params crypto.Argon2Parameters) SealerOption {
	return func(o *sealerOptions) {
		o.params = params
	}
}

// Sealer encrypts cookie values. The first secret seals; every secret can open,
// which lets operators rotate secrets without logging everyone out.
type Sealer struct {
	keys    [][]byte
	purpose []byte
}

// NewSealer derives one AES key per secret. purpose binds sealed values to their
// use so a value sealed for one cookie cannot be replayed into another.
func NewSealer(secrets []string, purpose string, opts ...SealerOption) (*Sealer, error) {
	options := sealerOptions{params: crypto.DefaultArgon2Params()}
	for _, opt := range opts {
		opt(&options)
	}

	purpose = strings.TrimSpace(purpose)
	if purpose == "" {
		return nil, errors.New("sealer: purpose is required")
	}
	salt := sha256.Sum256([]byte("cms-cookie-seal:" + purpose))

	keys := make([][]byte, 0, len(secrets))
	for i, secret := range secrets {
		secret = strings.TrimSpace(secret)
		if secret == "" {
			continue
		}
		if len(secret) < MinSecretLength {
			return nil, fmt.Errorf("sealer: secret %d has %d chars, need at least %d", i, len(secret), MinSecretLength)
		}
		key, err := crypto.DeriveKeyArgon2id([]byte(secret), salt[:], options.params)
		if err != nil {
			return nil, fmt.Errorf("sealer: derive key: %w", err)
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil, ErrNoSecret
	}

	return &Sealer{keys: keys, purpose: []byte(purpose)}, nil
}

// Seal encrypts value with the primary key.
func (s *Sealer) Seal(value string) (string, error) {
	sealed, err := crypto.Encrypt([]byte(value), s.keys[0], s.purpose)
	if err != nil {
		return "", fmt.Errorf("sealer: %w", err)
	}
	return sealed, nil
}

// Open decrypts a value produced by Seal with any configured key.
func (s *Sealer) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", ErrInvalidSeal
	}
	for _, key := range s.keys {
		plain, err := crypto.Decrypt(sealed, key, s.purpose)
		if err == nil {
			return string(plain), nil
		}
	}
	return "", ErrInvalidSeal
}
