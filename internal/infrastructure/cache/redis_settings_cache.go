package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agencydesk/backend/internal/domain/identity"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisSettingsCache implements SettingsCache using Redis
type RedisSettingsCache struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	logger     *zap.Logger
}

// RedisSettingsCacheOption is a functional option for configuring the cache
type RedisSettingsCacheOption func(*RedisSettingsCache)

// WithRedisSettingsLogger sets the logger for the cache
func WithRedisSettingsLogger(logger *zap.Logger) RedisSettingsCacheOption {
	return func(c *RedisSettingsCache) {
		c.logger = logger
	}
}

// NewRedisSettingsCache creates a Redis-backed settings cache with its own client
func NewRedisSettingsCache(addr, password string, db int, opts ...RedisSettingsCacheOption) (*RedisSettingsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &RedisSettingsCache{
		client:     client,
		ownsClient: true,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache, nil
}

// NewRedisSettingsCacheWithClient creates a cache with an existing Redis client.
// The caller retains ownership of the client and is responsible for closing it.
func NewRedisSettingsCacheWithClient(client *redis.Client, opts ...RedisSettingsCacheOption) *RedisSettingsCache {
	cache := &RedisSettingsCache{
		client:     client,
		ownsClient: false,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// settingsCacheKey generates the cache key for an agency's settings
func (c *RedisSettingsCache) settingsCacheKey(agencyID uuid.UUID) string {
	return fmt.Sprintf("agency_settings:%s", agencyID.String())
}

// Get retrieves automation settings from cache
func (c *RedisSettingsCache) Get(ctx context.Context, agencyID uuid.UUID) (*identity.AutomationSettings, error) {
	cacheKey := c.settingsCacheKey(agencyID)

	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if err == redis.Nil {
		c.logger.Debug("Cache miss for agency settings", zap.String("agency_id", agencyID.String()))
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Failed to get agency settings from cache",
			zap.String("agency_id", agencyID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get settings from cache: %w", err)
	}

	var settings identity.AutomationSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		c.logger.Error("Failed to unmarshal agency settings",
			zap.String("agency_id", agencyID.String()),
			zap.Error(err))
		// Delete corrupted cache entry
		_ = c.client.Del(ctx, cacheKey)
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	c.logger.Debug("Cache hit for agency settings", zap.String("agency_id", agencyID.String()))
	return &settings, nil
}

// Set stores automation settings in cache
func (c *RedisSettingsCache) Set(ctx context.Context, agencyID uuid.UUID, settings identity.AutomationSettings, ttl time.Duration) error {
	if ttl == 0 {
		ttl = DefaultSettingsTTL
	}

	cacheKey := c.settingsCacheKey(agencyID)

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
		c.logger.Error("Failed to set agency settings in cache",
			zap.String("agency_id", agencyID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to set settings in cache: %w", err)
	}

	c.logger.Debug("Cached agency settings",
		zap.String("agency_id", agencyID.String()),
		zap.Duration("ttl", ttl))
	return nil
}

// Delete removes an agency's settings from cache
func (c *RedisSettingsCache) Delete(ctx context.Context, agencyID uuid.UUID) error {
	cacheKey := c.settingsCacheKey(agencyID)

	if err := c.client.Del(ctx, cacheKey).Err(); err != nil {
		c.logger.Error("Failed to delete agency settings from cache",
			zap.String("agency_id", agencyID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to delete settings from cache: %w", err)
	}
	return nil
}

// Close releases any resources held by the cache
func (c *RedisSettingsCache) Close() error {
	// Only close client if we own it
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

// Ensure RedisSettingsCache implements SettingsCache
var _ SettingsCache = (*RedisSettingsCache)(nil)
