package auth

import (
	"fmt"

	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/crypto"
)

// TokenBytes is the amount of entropy in a session token.
const TokenBytes = 64

// GenerateToken returns a fresh bearer token. Only its hash is ever stored.
func GenerateToken() (string, error) {
	token, err := crypto.GenerateToken(TokenBytes)
	if err != nil {
		return "", fmt.Errorf("session token: %w", err)
	}
	return token, nil
}

// HashToken returns the lookup key for token.
func HashToken(token string) string {
	return crypto.Digest(token)
}
