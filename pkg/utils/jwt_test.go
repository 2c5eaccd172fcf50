package utils

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	SetSecret("test-secret")

	token, err := GenerateJWT("user-1", "a@rizqara.shop", "admin", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	claims, err := ExtractClaims(req)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestJWTExpiredAndForeign(t *testing.T) {
	SetSecret("test-secret")
	expired, err := GenerateJWT("user-1", "a@rizqara.shop", "customer", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateJWT(expired)
	assert.Error(t, err)

	SetSecret("other-secret")
	foreign, err := GenerateJWT("user-1", "a@rizqara.shop", "customer", time.Minute)
	require.NoError(t, err)
	SetSecret("test-secret")
	_, err = ValidateJWT(foreign)
	assert.Error(t, err)
}
