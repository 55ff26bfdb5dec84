package utils

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/white/campaign-manager/config"
)

// AccessTokenClaims are the claims the auth service puts in access tokens.
type AccessTokenClaims struct {
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Role  string   `json:"role"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *AccessTokenClaims) UserID() string {
	return c.Subject
}

// PrimaryRole returns role, falling back to the first entry of roles.
func (c *AccessTokenClaims) PrimaryRole() string {
	if c.Role != "" {
		return c.Role
	}
	if len(c.Roles) > 0 {
		return c.Roles[0]
	}
	return ""
}

// TokenValidator checks access tokens issued by the auth service. HS256
// tokens are checked with the shared secret, RS256 tokens with keys from JWKS.
type TokenValidator struct {
	secret []byte
	jwks   *JWKSCache
	issuer string
}

// NewTokenValidator creates a validator. jwks may be nil when only HS256 is used.
func NewTokenValidator(cfg config.JWTConfig, jwks *JWKSCache) *TokenValidator {
	v := &TokenValidator{jwks: jwks, issuer: cfg.Issuer}
	if cfg.SharedSecret != "" {
		v.secret = []byte(cfg.SharedSecret)
	}
	return v
}

// Enabled reports whether any verification key is configured.
func (v *TokenValidator) Enabled() bool {
	return v != nil && (len(v.secret) > 0 || v.jwks != nil)
}

// ValidateAccessToken verifies the signature, expiry and issuer of a token.
func (v *TokenValidator) ValidateAccessToken(tokenString string) (*AccessTokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &AccessTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.key, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing subject")
	}
	return claims, nil
}

func (v *TokenValidator) key(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if len(v.secret) == 0 {
			return nil, fmt.Errorf("HS256 tokens are not accepted")
		}
		return v.secret, nil
	case *jwt.SigningMethodRSA:
		if v.jwks == nil {
			return nil, fmt.Errorf("RS256 tokens are not accepted")
		}
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("token missing kid in header")
		}
		return v.jwks.GetPublicKey(kid)
	}
	return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
}
