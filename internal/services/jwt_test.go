package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doyalikess/stakehouse/internal/config"
	"github.com/doyalikess/stakehouse/internal/services"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := services.NewJWTService(&config.Config{JWTSecret: "test-secret", TokenTTL: time.Hour})

	token, sessionID, err := svc.GenerateToken("acct-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, sessionID)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", claims.AccountID)
	assert.Equal(t, sessionID, claims.SessionID)
}

func TestTokenRejectedWithWrongSecret(t *testing.T) {
	svc := services.NewJWTService(&config.Config{JWTSecret: "secret-a", TokenTTL: time.Hour})
	other := services.NewJWTService(&config.Config{JWTSecret: "secret-b", TokenTTL: time.Hour})

	token, _, err := svc.GenerateToken("acct-1")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := services.NewJWTService(&config.Config{JWTSecret: "test-secret", TokenTTL: -time.Minute})

	token, _, err := svc.GenerateToken("acct-1")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
