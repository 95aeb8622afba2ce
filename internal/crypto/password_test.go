package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("Test@1234")
	require.NoError(t, err)
	assert.NotEqual(t, "Test@1234", hash)

	// bcrypt использует случайную соль
	hash2, err := HashPassword("Test@1234")
	require.NoError(t, err)
	assert.NotEqual(t, hash, hash2)

	_, err = HashPassword("")
	assert.Error(t, err)
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Test@1234")
	require.NoError(t, err)

	assert.True(t, VerifyPassword("Test@1234", hash))
	assert.False(t, VerifyPassword("Test@12345", hash))
	assert.False(t, VerifyPassword("", hash))
	assert.False(t, VerifyPassword("Test@1234", ""))
	assert.False(t, VerifyPassword("Test@1234", "not-a-bcrypt-hash"))
}

func TestBurnPasswordCheck(t *testing.T) {
	assert.NotPanics(t, func() {
		BurnPasswordCheck("anything")
		BurnPasswordCheck("")
	})
}
