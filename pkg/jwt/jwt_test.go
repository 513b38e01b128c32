package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken("user-1", "agent", AccessToken, testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "agent", claims.Role)
	assert.Equal(t, AccessToken, claims.TokenType)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("user-1", "agent", AccessToken, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken(token, "other-secret")
	assert.Error(t, err)
}

func TestValidateExpiredToken(t *testing.T) {
	token, err := GenerateToken("user-1", "agent", AccessToken, testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, testSecret)
	assert.Error(t, err)
}

func TestValidateGarbageToken(t *testing.T) {
	_, err := ValidateToken("not-a-token", testSecret)
	assert.Error(t, err)
}

func TestIsTokenValidChecksType(t *testing.T) {
	access, err := GenerateToken("user-1", "agent", AccessToken, testSecret, time.Hour)
	require.NoError(t, err)
	refresh, err := GenerateToken("user-1", "agent", RefreshToken, testSecret, time.Hour)
	require.NoError(t, err)

	assert.True(t, IsTokenValid(access, testSecret, AccessToken))
	assert.False(t, IsTokenValid(access, testSecret, RefreshToken))
	assert.True(t, IsTokenValid(refresh, testSecret, RefreshToken))
	assert.False(t, IsTokenValid(refresh, testSecret, AccessToken))
}
