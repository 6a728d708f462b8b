package internal

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-our-secret"))
	require.NoError(t, err)
	return token
}

func TestInspectAccessToken(t *testing.T) {
	exp := time.Now().Add(5 * time.Minute).Truncate(time.Second).UTC()
	token := signedToken(t, jwt.MapClaims{
		"sub":        "42",
		"exp":        exp.Unix(),
		"token_type": "access",
	})

	info := InspectAccessToken(token)
	assert.False(t, info.Opaque)
	assert.Equal(t, "42", info.Subject)
	require.NotNil(t, info.ExpiresAt)
	assert.True(t, exp.Equal(*info.ExpiresAt))
	assert.False(t, info.Expired(time.Now()))
	assert.True(t, info.Expired(exp.Add(time.Second)))
}

func TestInspectOpaqueToken(t *testing.T) {
	info := InspectAccessToken("9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b")
	assert.True(t, info.Opaque)
	assert.Nil(t, info.ExpiresAt)
	assert.False(t, info.Expired(time.Now()))
}

func TestGetSessionStatus(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	status, err := GetSessionStatus(ctx, store)
	require.NoError(t, err)
	assert.False(t, status.Authenticated)
	assert.Nil(t, status.Access)

	require.NoError(t, SaveSession(ctx, store, signedToken(t, jwt.MapClaims{"sub": "7"}), "r1"))
	status, err = GetSessionStatus(ctx, store)
	require.NoError(t, err)
	assert.True(t, status.Authenticated)
	assert.True(t, status.HasRefresh)
	require.NotNil(t, status.Access)
	assert.Equal(t, "7", status.Access.Subject)
	assert.Nil(t, status.Access.ExpiresAt)
	assert.False(t, status.AccessExpired)
}

func TestGetSessionStatusReportsExpiredAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	expired := signedToken(t, jwt.MapClaims{"sub": "7", "exp": time.Now().Add(-time.Minute).Unix()})
	require.NoError(t, SaveSession(ctx, store, expired, "r1"))

	status, err := GetSessionStatus(ctx, store)
	require.NoError(t, err)
	assert.True(t, status.Authenticated)
	assert.True(t, status.AccessExpired)
}
