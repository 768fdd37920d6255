package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashAndCompare(t *testing.T) {
	hasher := NewPasswordHasher()

	hash, err := hasher.Hash("s3cret-password")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-password", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	assert.True(t, hasher.Compare("s3cret-password", hash))
	assert.False(t, hasher.Compare("wrong-password", hash))
	assert.False(t, hasher.Compare("s3cret-password", "not-a-bcrypt-hash"))
}

func TestRefreshTokenHashHandlesLongInput(t *testing.T) {
	hasher := NewPasswordHasher()

	// JWTs run well past bcrypt's 72-byte input window; the pre-digest
	// keeps the full token significant.
	long := strings.Repeat("header.payload.signature", 20)
	variant := long[:len(long)-1] + "X"

	hash, err := hasher.HashRefreshToken(long)
	require.NoError(t, err)

	assert.True(t, hasher.CompareRefreshToken(long, hash))
	assert.False(t, hasher.CompareRefreshToken(variant, hash))
}

func TestRefreshTokenHashIsSalted(t *testing.T) {
	hasher := NewPasswordHasher()

	first, err := hasher.HashRefreshToken("same-token")
	require.NoError(t, err)
	second, err := hasher.HashRefreshToken("same-token")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, hasher.CompareRefreshToken("same-token", first))
	assert.True(t, hasher.CompareRefreshToken("same-token", second))
}

func TestNewResetToken(t *testing.T) {
	first, err := NewResetToken()
	require.NoError(t, err)
	second, err := NewResetToken()
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
	assert.NotContains(t, first, "=")
}

func TestHashResetTokenIsDeterministic(t *testing.T) {
	hash := HashResetToken("some-token")

	assert.Equal(t, hash, HashResetToken("some-token"))
	assert.NotEqual(t, hash, HashResetToken("other-token"))
	assert.Len(t, hash, 64)
	assert.NotEqual(t, "some-token", hash)
}
