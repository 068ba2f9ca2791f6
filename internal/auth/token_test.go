package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func sign(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyValidToken(t *testing.T) {
	v := NewVerifier(testSecret)
	token := sign(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{
		"userId":   float64(42),
		"username": "alice",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	identity, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, 42, identity.UserID)
	require.Equal(t, "alice", identity.Username)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	v := NewVerifier(testSecret)

	_, err := v.Verify("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)

	// wrong secret
	token := sign(t, "other-secret", jwt.SigningMethodHS256, jwt.MapClaims{"userId": float64(42)})
	_, err = v.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)

	// expired
	token = sign(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": float64(42),
		"exp":    time.Now().Add(-time.Hour).Unix(),
	})
	_, err = v.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)

	// no userId claim
	token = sign(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{"username": "alice"})
	_, err = v.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsUnexpectedSigningMethod(t *testing.T) {
	v := NewVerifier(testSecret)
	token := sign(t, testSecret, jwt.SigningMethodHS512, jwt.MapClaims{"userId": float64(42)})

	_, err := v.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestFromHeader(t *testing.T) {
	v := NewVerifier(testSecret)
	token := sign(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{"userId": float64(7)})

	identity, err := v.FromHeader("Bearer " + token)
	require.NoError(t, err)
	require.Equal(t, 7, identity.UserID)

	// scheme is case-insensitive
	_, err = v.FromHeader("bearer " + token)
	require.NoError(t, err)

	_, err = v.FromHeader("")
	require.ErrorIs(t, err, ErrMissingBearer)

	_, err = v.FromHeader(token)
	require.ErrorIs(t, err, ErrMissingBearer)
}
