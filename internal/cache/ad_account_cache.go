package cache

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/white/campaign-manager/internal/models"
)

// Connect builds a Redis client from a redis:// URL or a bare host:port.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// AdAccountCache remembers which vendor ad account a user's calls go to,
// so adapters skip the account lookup on every request.
type AdAccountCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAdAccountCache returns a cache with the given TTL (1h when zero).
// A nil client gives a cache that always misses.
func NewAdAccountCache(client *redis.Client, ttl time.Duration) *AdAccountCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AdAccountCache{client: client, ttl: ttl}
}

// Get returns the cached account id. Found is false on a miss.
func (c *AdAccountCache) Get(ctx context.Context, platform models.PlatformName, userID string) (string, bool, error) {
	if c == nil || c.client == nil {
		return "", false, nil
	}
	val, err := c.client.Get(ctx, buildKey(platform, userID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis error: %w", err)
	}
	return val, true, nil
}

func (c *AdAccountCache) Set(ctx context.Context, platform models.PlatformName, userID, accountID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Set(ctx, buildKey(platform, userID), accountID, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Invalidate drops every cached account that depends on the owner's
// credential, e.g. Facebook also clears Instagram and WhatsApp.
func (c *AdAccountCache) Invalidate(ctx context.Context, owner models.PlatformName, userID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	var keys []string
	for _, p := range models.AllPlatforms {
		if p.CredentialOwner() == owner {
			keys = append(keys, buildKey(p, userID))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

// GetAccount serves the adapters; Redis failures count as a miss.
func (c *AdAccountCache) GetAccount(ctx context.Context, platform models.PlatformName, userID string) (string, bool) {
	id, found, err := c.Get(ctx, platform, userID)
	if err != nil {
		log.Printf("Ad account cache read failed for %s/%s: %v", platform, userID, err)
		return "", false
	}
	return id, found
}

// SetAccount serves the adapters; Redis failures are logged and dropped.
func (c *AdAccountCache) SetAccount(ctx context.Context, platform models.PlatformName, userID, accountID string) {
	if err := c.Set(ctx, platform, userID, accountID); err != nil {
		log.Printf("Ad account cache write failed for %s/%s: %v", platform, userID, err)
	}
}

// buildKey formats adaccount:{platform}:{user_id}
func buildKey(platform models.PlatformName, userID string) string {
	return fmt.Sprintf("adaccount:%s:%s", platform.Key(), userID)
}
