package token_test

import (
	"testing"
	"time"

	"github.com/abase/abase-manager/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func freezeTime(t *testing.T) {
	t.Helper()
	token.NowTimeFunc = func() time.Time { return fixedNow }
	t.Cleanup(func() { token.NowTimeFunc = time.Now })
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("1234"))
	require.NoError(t, err)
	return s
}

func TestInspect(t *testing.T) {
	exp := fixedNow.Add(10 * time.Minute)
	raw := signedToken(t, jwt.MapClaims{"sub": "user-1", "exp": exp.Unix()})

	c, ok := token.Inspect(raw)
	require.True(t, ok)
	require.Equal(t, "user-1", c.Subject)
	require.True(t, exp.Equal(c.ExpiresAt))

	_, ok = token.Inspect("opaque-token")
	require.False(t, ok)

	_, ok = token.Inspect("")
	require.False(t, ok)
}

func TestExpiry(t *testing.T) {
	freezeTime(t)

	t.Run("exp claim wins", func(t *testing.T) {
		exp := fixedNow.Add(time.Hour)
		raw := signedToken(t, jwt.MapClaims{"exp": exp.Unix()})
		require.True(t, exp.Equal(token.Expiry(raw, time.Minute)))
	})

	t.Run("jwt without exp", func(t *testing.T) {
		raw := signedToken(t, jwt.MapClaims{"sub": "x"})
		require.Equal(t, fixedNow.Add(time.Minute), token.Expiry(raw, time.Minute))
	})

	t.Run("opaque token", func(t *testing.T) {
		require.Equal(t, fixedNow.Add(15*time.Minute), token.Expiry("opaque", 15*time.Minute))
	})
}

func TestExpiryIn(t *testing.T) {
	freezeTime(t)

	require.Equal(t, fixedNow.Add(900*time.Second), token.ExpiryIn(900, "opaque", time.Minute))
	require.Equal(t, fixedNow.Add(time.Minute), token.ExpiryIn(0, "opaque", time.Minute))
}

func TestExpired(t *testing.T) {
	freezeTime(t)

	require.False(t, token.Expired(time.Time{}, 0))
	require.False(t, token.Expired(fixedNow.Add(time.Hour), time.Minute))
	require.True(t, token.Expired(fixedNow.Add(30*time.Second), time.Minute))
	require.True(t, token.Expired(fixedNow.Add(-time.Second), 0))
}
