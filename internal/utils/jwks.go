package utils

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// JWK represents a JSON Web Key
type JWK struct {
	Kty string `json:"kty"` // Key type (RSA)
	Use string `json:"use"` // Key use (sig for signature)
	Kid string `json:"kid"` // Key ID
	Alg string `json:"alg"` // Algorithm (RS256)
	N   string `json:"n"`   // RSA modulus (base64url encoded)
	E   string `json:"e"`   // RSA exponent (base64url encoded)
}

// JWKS represents a JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWKSCache fetches the auth service's signing keys and caches them by kid.
type JWKSCache struct {
	endpoint      string
	cacheDuration time.Duration
	client        *http.Client
	keys          map[string]*rsa.PublicKey
	lastFetch     time.Time
	mu            sync.RWMutex
}

func NewJWKSCache(endpoint string, cacheDuration time.Duration) *JWKSCache {
	return &JWKSCache{
		endpoint:      endpoint,
		cacheDuration: cacheDuration,
		client:        &http.Client{Timeout: 10 * time.Second},
		keys:          make(map[string]*rsa.PublicKey),
	}
}

// GetPublicKey returns the key for kid, refetching the set when the cache
// is stale or the kid is unknown.
func (c *JWKSCache) GetPublicKey(kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	if key, exists := c.keys[kid]; exists && time.Since(c.lastFetch) < c.cacheDuration {
		c.mu.RUnlock()
		return key, nil
	}
	c.mu.RUnlock()

	if err := c.fetchKeys(); err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if key, exists := c.keys[kid]; exists {
		return key, nil
	}
	return nil, fmt.Errorf("key not found in JWKS: kid=%s", kid)
}

func (c *JWKSCache) fetchKeys() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have fetched while we waited for the lock
	if time.Since(c.lastFetch) < time.Second {
		return nil
	}

	resp, err := c.client.Get(c.endpoint)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS from %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var jwks JWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}

	newKeys := make(map[string]*rsa.PublicKey)
	for _, jwk := range jwks.Keys {
		if jwk.Kty != "RSA" {
			continue
		}
		publicKey, err := jwkToRSAPublicKey(jwk)
		if err != nil {
			log.Printf("Skipping JWK kid=%s: %v", jwk.Kid, err)
			continue
		}
		newKeys[jwk.Kid] = publicKey
	}
	if len(newKeys) == 0 {
		return fmt.Errorf("no valid RSA keys found in JWKS")
	}

	c.keys = newKeys
	c.lastFetch = time.Now()
	return nil
}

func jwkToRSAPublicKey(jwk JWK) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}
