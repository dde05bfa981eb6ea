package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyValidToken(t *testing.T) {
	v := NewVerifier(testSecret)

	tokenString := signToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "user@example.com",
	})

	identity, err := v.Verify(tokenString)
	require.NoError(t, err)
	require.Equal(t, "user-1", identity.UserID)
	require.Equal(t, "user@example.com", identity.Email)
}

func TestVerifyExpiredToken(t *testing.T) {
	v := NewVerifier(testSecret)

	tokenString := signToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := v.Verify(tokenString)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyWrongSecret(t *testing.T) {
	v := NewVerifier(testSecret)

	tokenString := signToken(t, "other-secret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := v.Verify(tokenString)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyMissingSubject(t *testing.T) {
	v := NewVerifier(testSecret)

	tokenString := signToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := v.Verify(tokenString)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsNonHMACAlgorithm(t *testing.T) {
	v := NewVerifier(testSecret)

	// alg=none tokens must never pass.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	})
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.Verify(tokenString)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	v := NewVerifier(testSecret)

	_, err := v.Verify("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
