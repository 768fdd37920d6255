package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// NewResetToken returns a 256-bit random opaque token. The raw value goes
// out-of-band to the user; only its hash is persisted.
func NewResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashResetToken is a fast deterministic hash, not bcrypt: reset tokens
// are high-entropy and single-use, and a deterministic digest allows a
// direct indexed lookup instead of a table scan.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
