package extraction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/profile-importer/internal/types"
	"github.com/redis/go-redis/v9"
)

// Cache stores extraction results keyed by page content.
type Cache interface {
	// Get returns the cached profile; ok is false on a miss.
	Get(ctx context.Context, key string) (profile *types.ExtractedProfile, ok bool, err error)
	Set(ctx context.Context, key string, profile *types.ExtractedProfile) error
}

// DefaultCachePrefix namespaces cache keys.
const DefaultCachePrefix = "profile-importer:extract:"

// CacheKey derives a stable key from the model and the page text, so a
// model change never serves stale results.
func CacheKey(model, content string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + content))
	return hex.EncodeToString(sum[:])
}

// RedisCache implements Cache on Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default DefaultCachePrefix
	TTL      time.Duration // Expiration, 0 keeps entries forever
}

// NewRedisCache connects to Redis. The connection is lazy; Ping to check it.
func NewRedisCache(opts RedisOptions) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultCachePrefix
	}

	return &RedisCache{client: client, prefix: prefix, ttl: opts.TTL}
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (*types.ExtractedProfile, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var profile types.ExtractedProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, false, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &profile, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, profile *types.ExtractedProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
