package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundtrip(t *testing.T) {
	token, err := GenerateAccessToken("secret", "user-1", "token-1", "Saalik", time.Hour)
	require.NoError(t, err)

	claims, err := ParseAccessToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "token-1", claims.TokenID)
	assert.Equal(t, "Saalik", claims.Role)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestParseAccessTokenWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken("secret", "user-1", "token-1", "Saalik", time.Hour)
	require.NoError(t, err)

	_, err = ParseAccessToken(token, "other secret")
	assert.Error(t, err)
}

func TestParseAccessTokenExpired(t *testing.T) {
	token, err := GenerateAccessToken("secret", "user-1", "token-1", "Saalik", -time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(token, "secret")
	assert.Error(t, err)
}

func TestGenerateTokenIDUnique(t *testing.T) {
	first, err := GenerateTokenID()
	require.NoError(t, err)
	second, err := GenerateTokenID()
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
