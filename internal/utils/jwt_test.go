package utils

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/white/campaign-manager/config"
)

const testUserID = "0192f3a4-5b6c-7d8e-9f01-23456789abcd"

func signHS256(t *testing.T, secret string, claims AccessTokenClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() AccessTokenClaims {
	return AccessTokenClaims{
		Email: "owner@example.com",
		Role:  "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testUserID,
			Issuer:    "auth-service",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestTokenValidator_HS256(t *testing.T) {
	v := NewTokenValidator(config.JWTConfig{SharedSecret: "s3cret", Issuer: "auth-service"}, nil)
	require.True(t, v.Enabled())

	t.Run("valid token", func(t *testing.T) {
		claims, err := v.ValidateAccessToken(signHS256(t, "s3cret", validClaims()))
		require.NoError(t, err)
		assert.Equal(t, testUserID, claims.UserID())
		assert.Equal(t, "admin", claims.PrimaryRole())
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := v.ValidateAccessToken(signHS256(t, "other", validClaims()))
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		c := validClaims()
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := v.ValidateAccessToken(signHS256(t, "s3cret", c))
		assert.Error(t, err)
	})

	t.Run("missing expiry", func(t *testing.T) {
		c := validClaims()
		c.ExpiresAt = nil
		_, err := v.ValidateAccessToken(signHS256(t, "s3cret", c))
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		c := validClaims()
		c.Issuer = "someone-else"
		_, err := v.ValidateAccessToken(signHS256(t, "s3cret", c))
		assert.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		c := validClaims()
		c.Subject = ""
		_, err := v.ValidateAccessToken(signHS256(t, "s3cret", c))
		assert.Error(t, err)
	})
}

func TestTokenValidator_RS256(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	fetches := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		json.NewEncoder(w).Encode(JWKS{Keys: []JWK{{
			Kty: "RSA",
			Use: "sig",
			Kid: "key-1",
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	}))
	defer server.Close()

	v := NewTokenValidator(config.JWTConfig{}, NewJWKSCache(server.URL, time.Hour))

	sign := func(kid string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims())
		token.Header["kid"] = kid
		signed, err := token.SignedString(key)
		require.NoError(t, err)
		return signed
	}

	claims, err := v.ValidateAccessToken(sign("key-1"))
	require.NoError(t, err)
	assert.Equal(t, testUserID, claims.UserID())

	_, err = v.ValidateAccessToken(sign("key-1"))
	require.NoError(t, err)
	assert.Equal(t, 1, fetches, "keys are cached")

	_, err = v.ValidateAccessToken(sign("unknown"))
	assert.Error(t, err)

	_, err = v.ValidateAccessToken(signHS256(t, "s3cret", validClaims()))
	assert.Error(t, err, "HS256 is rejected without a shared secret")
}

func TestAccessTokenClaims_PrimaryRole(t *testing.T) {
	assert.Equal(t, "user", (&AccessTokenClaims{Roles: []string{"user", "admin"}}).PrimaryRole())
	assert.Equal(t, "admin", (&AccessTokenClaims{Role: "admin", Roles: []string{"user"}}).PrimaryRole())
	assert.Empty(t, (&AccessTokenClaims{}).PrimaryRole())
}
