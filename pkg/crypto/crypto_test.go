package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Secret123", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "Secret123", hash)

	assert.True(t, CheckPassword("Secret123", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func TestHashPasswordClampsCost(t *testing.T) {
	hash, err := HashPassword("Secret123", 99)
	require.NoError(t, err)
	assert.True(t, CheckPassword("Secret123", hash))
}
