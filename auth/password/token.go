package password

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// GenerateToken creates a cryptographically secure random token of the
// specified byte length, returned as a hex-encoded string.
func GenerateToken(length int) (string, error) {
	bytes, err := generateRandomBytes(length)
	if err != nil {
		return "", fmt.Errorf("password: generate token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// HashToken returns the hex HMAC-SHA256 of token keyed by secret. Stores
// persist this value instead of the raw token.
func HashToken(secret, token string) string {
	return hmacHex([]byte(secret), token)
}

// generateRandomBytes returns cryptographically secure random bytes.
func generateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}
