// Package auth issues and checks the bearer token protecting the HTTP API.
//
// Only the bcrypt hash of a token is ever stored (server.tokenHash); the raw
// token is shown once when it is generated.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// TokenPrefix marks codefacts API tokens.
	TokenPrefix = "cf_sk_" // #nosec G101 -- a prefix, not a credential

	// TokenLength is the number of random bytes in a token, hex encoded.
	TokenLength = 32

	bcryptCost = 12
)

// GenerateToken returns a new random token.
// Format: cf_sk_<64 hex chars>
func GenerateToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return TokenPrefix + hex.EncodeToString(b), nil
}

// HashToken creates the bcrypt hash stored in the config.
func HashToken(token string) (string, error) {
	if !IsValidTokenFormat(token) {
		return "", fmt.Errorf("hash token: not a %s token", TokenPrefix)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimPrefix(token, TokenPrefix)), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(hash), nil
}

// VerifyToken checks a presented token against the stored hash.
func VerifyToken(token, hash string) bool {
	if hash == "" || !IsValidTokenFormat(token) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimPrefix(token, TokenPrefix))) == nil
}

// IsValidTokenFormat checks the prefix and the hex body length.
func IsValidTokenFormat(token string) bool {
	secret, ok := strings.CutPrefix(token, TokenPrefix)
	if !ok || len(secret) != TokenLength*2 {
		return false
	}
	_, err := hex.DecodeString(secret)
	return err == nil
}

// MaskToken returns a token safe to print.
// Example: cf_sk_a1b2c3d4****
func MaskToken(token string) string {
	const visible = 8
	if len(token) < len(TokenPrefix)+visible {
		return "****"
	}
	return token[:len(TokenPrefix)+visible] + "****"
}
