package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// PasswordHasher wraps bcrypt for passwords and refresh tokens. Kept as a
// struct so services can take it behind a small interface.
type PasswordHasher struct{}

func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{}
}

func (h *PasswordHasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h *PasswordHasher) Compare(plain string, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// HashRefreshToken stores refresh tokens under a salted adaptive hash so a
// leaked sessions table cannot be replayed. bcrypt only reads the first
// 72 bytes of input and JWTs are longer, so the token is pre-digested
// with SHA-256 before hashing.
func (h *PasswordHasher) HashRefreshToken(token string) (string, error) {
	sum := sha256.Sum256([]byte(token))
	hash, err := bcrypt.GenerateFromPassword(sum[:], bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h *PasswordHasher) CompareRefreshToken(token string, hash string) bool {
	sum := sha256.Sum256([]byte(token))
	return bcrypt.CompareHashAndPassword([]byte(hash), sum[:]) == nil
}
