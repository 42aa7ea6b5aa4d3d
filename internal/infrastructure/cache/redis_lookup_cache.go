package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
)

const defaultKeyPrefix = "shipstation:lookup:"

// RedisLookupCache implements fulfillment.LookupCache using Redis.
// This is suitable for deployments where several instances share lookups.
type RedisLookupCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// RedisLookupCacheOption configures a RedisLookupCache
type RedisLookupCacheOption func(*RedisLookupCache)

// WithCacheLogger sets the logger that reports failed cache writes
func WithCacheLogger(logger *zap.Logger) RedisLookupCacheOption {
	return func(c *RedisLookupCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisLookupCache connects to Redis and creates a lookup cache
func NewRedisLookupCache(cfg RedisConfig, ttl time.Duration, opts ...RedisLookupCacheOption) (*RedisLookupCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisLookupCacheWithClient(client, "", ttl, opts...), nil
}

// NewRedisLookupCacheWithClient creates a cache with an existing Redis client
func NewRedisLookupCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration, opts ...RedisLookupCacheOption) *RedisLookupCache {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &RedisLookupCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached id for name
func (c *RedisLookupCache) Get(ctx context.Context, kind fulfillment.LookupKind, name string) (int64, bool, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+cacheKey(kind, name)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read lookup cache: %w", err)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt lookup cache entry %q: %w", raw, err)
	}
	return id, true, nil
}

// Set stores id for name with the cache TTL. Failures are logged here since
// callers treat the cache as best effort.
func (c *RedisLookupCache) Set(ctx context.Context, kind fulfillment.LookupKind, name string, id int64) error {
	if err := c.client.Set(ctx, c.keyPrefix+cacheKey(kind, name), strconv.FormatInt(id, 10), c.ttl).Err(); err != nil {
		c.logger.Warn("failed to write lookup cache",
			zap.String("kind", string(kind)),
			zap.String("name", name),
			zap.Error(err),
		)
		return fmt.Errorf("failed to write lookup cache: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisLookupCache) Close() error {
	return c.client.Close()
}

// Ensure RedisLookupCache implements LookupCache
var _ LookupCache = (*RedisLookupCache)(nil)
