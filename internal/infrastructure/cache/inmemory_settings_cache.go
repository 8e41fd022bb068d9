package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agencydesk/backend/internal/domain/identity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// cleanupInterval between sweeps for expired settings entries
const cleanupInterval = 30 * time.Second

// InMemorySettingsCache implements SettingsCache using in-memory storage.
// It is the fallback when no Redis host is configured and serves
// single-instance deployments fine: settings change rarely and the TTL
// bounds staleness.
type InMemorySettingsCache struct {
	entries sync.Map // map[uuid.UUID]*settingsEntry
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped int32

	// Stats for monitoring
	hits   int64
	misses int64
}

// settingsEntry wraps cached settings with expiration time
type settingsEntry struct {
	settings  identity.AutomationSettings
	expiresAt time.Time
}

func (e *settingsEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemorySettingsCacheOption is a functional option for configuring the cache
type InMemorySettingsCacheOption func(*InMemorySettingsCache)

// WithInMemorySettingsLogger sets the logger for the cache
func WithInMemorySettingsLogger(logger *zap.Logger) InMemorySettingsCacheOption {
	return func(c *InMemorySettingsCache) {
		c.logger = logger
	}
}

// NewInMemorySettingsCache creates a new in-memory settings cache
func NewInMemorySettingsCache(opts ...InMemorySettingsCacheOption) *InMemorySettingsCache {
	cache := &InMemorySettingsCache{
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	// Start background cleanup goroutine
	go cache.cleanupExpired()

	return cache
}

// Get retrieves automation settings from cache
func (c *InMemorySettingsCache) Get(_ context.Context, agencyID uuid.UUID) (*identity.AutomationSettings, error) {
	if value, ok := c.entries.Load(agencyID); ok {
		entry := value.(*settingsEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			settings := entry.settings
			return &settings, nil
		}
		// Expired, remove from cache
		c.entries.Delete(agencyID)
	}

	atomic.AddInt64(&c.misses, 1)
	return nil, nil
}

// Set stores automation settings in cache
func (c *InMemorySettingsCache) Set(_ context.Context, agencyID uuid.UUID, settings identity.AutomationSettings, ttl time.Duration) error {
	if ttl == 0 {
		ttl = DefaultSettingsTTL
	}

	c.entries.Store(agencyID, &settingsEntry{
		settings:  settings,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

// Delete removes an agency's settings from cache
func (c *InMemorySettingsCache) Delete(_ context.Context, agencyID uuid.UUID) error {
	c.entries.Delete(agencyID)
	return nil
}

// Close stops the cleanup goroutine
func (c *InMemorySettingsCache) Close() error {
	// Only close once
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// GetStats returns cache statistics
func (c *InMemorySettingsCache) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// cleanupExpired periodically removes expired entries from the cache
func (c *InMemorySettingsCache) cleanupExpired() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			removed := 0
			c.entries.Range(func(key, value any) bool {
				if value.(*settingsEntry).isExpired() {
					c.entries.Delete(key)
					removed++
				}
				return true
			})
			if removed > 0 {
				c.logger.Debug("Cleaned up expired settings entries", zap.Int("removed", removed))
			}
		}
	}
}

// Ensure InMemorySettingsCache implements SettingsCache
var _ SettingsCache = (*InMemorySettingsCache)(nil)
