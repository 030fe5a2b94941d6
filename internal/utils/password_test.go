package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Password123")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	assert.True(t, CheckPasswordHash("Password123", hash))
	assert.False(t, CheckPasswordHash("password123", hash))
	assert.False(t, CheckPasswordHash("", hash))
}

func TestHashPasswordIsSalted(t *testing.T) {
	h1, err := HashPassword("Password123")
	require.NoError(t, err)
	h2, err := HashPassword("Password123")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestCheckPasswordHashRejectsGarbage(t *testing.T) {
	assert.False(t, CheckPasswordHash("Password123", "not-a-hash"))
	assert.False(t, CheckPasswordHash("Password123", "$bcrypt$whatever"))
	assert.False(t, CheckPasswordHash("Password123", ""))
}
