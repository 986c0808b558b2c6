package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func signToken(t *testing.T, secret []byte, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestVerifyAcceptsValidToken(t *testing.T) {
	secret := []byte("test-secret")
	v := NewVerifier(secret, zap.NewNop())

	tok := signToken(t, secret, Claims{
		Subject: "user-1",
		Role:    "admin",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})

	claims, err := v.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	secret := []byte("test-secret")
	v := NewVerifier(secret, zap.NewNop())

	tok := signToken(t, secret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))},
	})

	_, err := v.Verify(tok)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejectsWrongSigningKey(t *testing.T) {
	v := NewVerifier([]byte("right-secret"), zap.NewNop())
	tok := signToken(t, []byte("wrong-secret"), Claims{})

	_, err := v.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractBearer(t *testing.T) {
	require.Equal(t, "abc", ExtractBearer("Bearer abc"))
	require.Equal(t, "", ExtractBearer("Basic abc"))
	require.Equal(t, "", ExtractBearer(""))
}

func TestVerifyRejectsEmptyToken(t *testing.T) {
	v := NewVerifier([]byte("s"), zap.NewNop())
	_, err := v.Verify("")
	require.ErrorIs(t, err, ErrMissingToken)
}
