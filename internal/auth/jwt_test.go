package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vecinal/backend/internal/auth"
)

func TestJWTService_SessionTokens(t *testing.T) {
	svc := auth.NewJWTService("test-secret", 24, 48)

	token, jti, expiresAt, err := svc.GenerateSession("alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, jti)
	assert.False(t, expiresAt.IsZero())

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, jti, claims.ID)
	assert.Empty(t, claims.Type)
}

func TestJWTService_AutoLoginTokens(t *testing.T) {
	svc := auth.NewJWTService("test-secret", 24, 48)

	token, tokenID, err := svc.GenerateAutoLogin("bob")
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "bob", claims.Subject)
	assert.Equal(t, tokenID, claims.ID)
	assert.Equal(t, auth.TokenTypeAutoLogin, claims.Type)
}

func TestJWTService_Validate(t *testing.T) {
	svc := auth.NewJWTService("test-secret", 24, 48)

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.Validate("not.a.token")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := auth.NewJWTService("another-secret", 24, 48)
		token, _, _, err := other.GenerateSession("alice")
		require.NoError(t, err)

		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := auth.NewJWTService("test-secret", -1, 48)
		token, _, _, err := expired.GenerateSession("alice")
		require.NoError(t, err)

		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, auth.ErrExpiredToken)
	})
}
