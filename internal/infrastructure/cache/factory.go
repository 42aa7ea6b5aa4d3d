package cache

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
	"github.com/jeffects/shipstation-endpoint/internal/infrastructure/config"
)

// DefaultTTL is the lifetime of a cached lookup when none is configured
const DefaultTTL = 24 * time.Hour

// Cache backends
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// LookupCache is a closable fulfillment.LookupCache
type LookupCache interface {
	fulfillment.LookupCache
	io.Closer
}

func cacheKey(kind fulfillment.LookupKind, name string) string {
	return string(kind) + ":" + name
}

// LookupCacheFactory creates lookup caches based on configuration
type LookupCacheFactory struct {
	lookupConfig          config.LookupConfig
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// LookupCacheFactoryOption is a functional option for configuring the factory
type LookupCacheFactoryOption func(*LookupCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) LookupCacheFactoryOption {
	return func(f *LookupCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache when Redis is unavailable.
// Default is true (allow fallback).
func WithInMemoryFallback(allow bool) LookupCacheFactoryOption {
	return func(f *LookupCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewLookupCacheFactory creates a new factory
func NewLookupCacheFactory(lookupCfg config.LookupConfig, redisCfg config.RedisConfig, opts ...LookupCacheFactoryOption) *LookupCacheFactory {
	f := &LookupCacheFactory{
		lookupConfig:          lookupCfg,
		redisConfig:           redisCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateCache creates the configured cache. It returns nil for the "none" backend.
// A Redis backend falls back to in-memory when Redis is unreachable and fallback is allowed.
func (f *LookupCacheFactory) CreateCache() (LookupCache, error) {
	switch f.lookupConfig.CacheBackend {
	case "", BackendNone:
		return nil, nil
	case BackendMemory:
		f.logger.Info("using in-memory lookup cache", zap.Duration("ttl", f.lookupConfig.CacheTTL))
		return NewInMemoryLookupCache(f.lookupConfig.CacheTTL), nil
	case BackendRedis:
		return f.createRedisCache()
	default:
		return nil, fmt.Errorf("unknown lookup cache backend %q", f.lookupConfig.CacheBackend)
	}
}

func (f *LookupCacheFactory) createRedisCache() (LookupCache, error) {
	store, err := NewRedisLookupCache(RedisConfig{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, f.lookupConfig.CacheTTL, WithCacheLogger(f.logger.Named("lookup_cache")))
	if err == nil {
		f.logger.Info("using Redis lookup cache", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for lookup cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory lookup cache. "+
		"Instances will not share carrier and service lookups.",
		zap.Error(err),
	)
	return NewInMemoryLookupCache(f.lookupConfig.CacheTTL), nil
}
