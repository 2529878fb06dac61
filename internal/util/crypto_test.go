package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Run("generates 64 hex characters", func(t *testing.T) {
		token, err := GenerateToken()
		require.NoError(t, err)
		assert.Len(t, token, 64)
	})

	t.Run("generates unique tokens", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			token, err := GenerateToken()
			require.NoError(t, err)
			assert.False(t, seen[token], "duplicate token generated")
			seen[token] = true
		}
	})
}

func TestHmacSHA256(t *testing.T) {
	t.Run("depends on secret", func(t *testing.T) {
		assert.NotEqual(t, HmacSHA256("s1", "data"), HmacSHA256("s2", "data"))
	})

	t.Run("depends on data", func(t *testing.T) {
		assert.NotEqual(t, HmacSHA256("s", "a"), HmacSHA256("s", "b"))
	})
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual("token", "token"))
	assert.False(t, ConstantTimeEqual("token", "other"))
	assert.False(t, ConstantTimeEqual("token", "toke"))
}

func TestPasswordHashing(t *testing.T) {
	t.Run("round trips", func(t *testing.T) {
		hash, err := HashPassword("s3cret-mot-de-passe")
		require.NoError(t, err)
		assert.True(t, CheckPasswordHash("s3cret-mot-de-passe", hash))
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		hash, err := HashPassword("correct")
		require.NoError(t, err)
		assert.False(t, CheckPasswordHash("wrong", hash))
	})
}

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("550e8400-e29b-41d4-a716-446655440000"))
	assert.True(t, IsValidUUID("550E8400-E29B-41D4-A716-446655440000"))
	assert.False(t, IsValidUUID(""))
	assert.False(t, IsValidUUID("not-a-uuid"))
}

func TestIsValidSlug(t *testing.T) {
	assert.True(t, IsValidSlug("boulangerie-du-coin"))
	assert.True(t, IsValidSlug("cafe2"))
	assert.False(t, IsValidSlug(""))
	assert.False(t, IsValidSlug("-leading"))
	assert.False(t, IsValidSlug("Trailing-"))
}
