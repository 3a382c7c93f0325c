package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestInspectToken(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	assert.False(t, InspectToken("", now).Present)

	info := InspectToken("not-a-jwt", now)
	assert.True(t, info.Present)
	assert.Equal(t, "opaque", info.Format)

	info = InspectToken(signed(t, jwt.MapClaims{"sub": "u1", "exp": now.Add(time.Hour).Unix()}), now)
	assert.Equal(t, "jwt", info.Format)
	assert.Equal(t, "u1", info.Subject)
	assert.Equal(t, now.Add(time.Hour).Unix(), info.ExpiresAt)
	assert.False(t, info.Expired)

	info = InspectToken(signed(t, jwt.MapClaims{"sub": 42, "exp": now.Add(-time.Minute).Unix()}), now)
	assert.Equal(t, "42", info.Subject)
	assert.True(t, info.Expired)
}
