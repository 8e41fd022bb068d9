package auth

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist answers whether a validated token has been revoked since it
// was issued. Revocation marks are written by the identity service into the
// shared Redis; this backend only reads them.
type TokenBlacklist interface {
	// IsBlacklisted reports whether the token's JTI was individually revoked
	// (single-session logout).
	IsBlacklisted(ctx context.Context, jti string) (bool, error)

	// IsUserTokenInvalidated reports whether the user was force-logged-out
	// after the token was issued. Tokens issued at or before the user's
	// invalidation mark are rejected.
	IsUserTokenInvalidated(ctx context.Context, userID string, tokenIssuedAt time.Time) (bool, error)
}

// Key layout shared with the identity service. JTI keys hold "1" with a TTL
// matching the token's remaining lifetime; user keys hold the force-logout
// Unix timestamp.
const (
	blacklistJTIPrefix  = "agencydesk:token:blacklist:jti:"
	blacklistUserPrefix = "agencydesk:token:blacklist:user:"
)

// RedisTokenBlacklist reads revocation marks from Redis.
type RedisTokenBlacklist struct {
	client *redis.Client
}

// RedisTokenBlacklistConfig holds the Redis connection settings.
type RedisTokenBlacklistConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisTokenBlacklist connects to Redis and verifies the connection with
// a ping before returning.
func NewRedisTokenBlacklist(cfg RedisTokenBlacklistConfig) (*RedisTokenBlacklist, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 3,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis for token blacklist: %w", err)
	}

	return &RedisTokenBlacklist{client: client}, nil
}

// IsBlacklisted checks for a revocation mark under the token's JTI.
func (b *RedisTokenBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	exists, err := b.client.Exists(ctx, blacklistJTIPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return exists > 0, nil
}

// IsUserTokenInvalidated compares the token's issue time against the user's
// force-logout mark, if any.
func (b *RedisTokenBlacklist) IsUserTokenInvalidated(ctx context.Context, userID string, tokenIssuedAt time.Time) (bool, error) {
	raw, err := b.client.Get(ctx, blacklistUserPrefix+userID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user token invalidation: %w", err)
	}

	invalidatedAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse invalidation timestamp %q: %w", raw, err)
	}
	return tokenIssuedAt.Unix() <= invalidatedAt, nil
}

// Close closes the Redis client.
func (b *RedisTokenBlacklist) Close() error {
	return b.client.Close()
}

var _ TokenBlacklist = (*RedisTokenBlacklist)(nil)

// InMemoryTokenBlacklist backs local development and tests, where no Redis
// (and no identity service) is around to write revocation marks. The write
// side lives here as plain methods so tests can stage revocations.
type InMemoryTokenBlacklist struct {
	mu             sync.RWMutex
	revokedUntil   map[string]time.Time // jti -> mark expiry
	forcedLogoutAt map[string]time.Time // userID -> invalidation mark
}

// NewInMemoryTokenBlacklist creates an empty in-memory blacklist.
func NewInMemoryTokenBlacklist() *InMemoryTokenBlacklist {
	return &InMemoryTokenBlacklist{
		revokedUntil:   make(map[string]time.Time),
		forcedLogoutAt: make(map[string]time.Time),
	}
}

// Revoke marks a single token's JTI as revoked for ttl. The mark only needs
// to outlive the token, so it expires rather than accumulating.
func (b *InMemoryTokenBlacklist) Revoke(jti string, ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revokedUntil[jti] = time.Now().Add(ttl)
}

// ForceLogout invalidates every token the user holds that was issued up to
// now.
func (b *InMemoryTokenBlacklist) ForceLogout(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forcedLogoutAt[userID] = time.Now()
}

// IsBlacklisted reports whether the JTI carries an unexpired revocation mark.
// Expired marks are dropped on the way out.
func (b *InMemoryTokenBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	expiry, ok := b.revokedUntil[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(b.revokedUntil, jti)
		return false, nil
	}
	return true, nil
}

// IsUserTokenInvalidated reports whether the token was issued at or before
// the user's force-logout mark. Nanosecond comparison keeps back-to-back
// test steps distinguishable.
func (b *InMemoryTokenBlacklist) IsUserTokenInvalidated(_ context.Context, userID string, tokenIssuedAt time.Time) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	mark, ok := b.forcedLogoutAt[userID]
	if !ok {
		return false, nil
	}
	return tokenIssuedAt.UnixNano() <= mark.UnixNano(), nil
}

var _ TokenBlacklist = (*InMemoryTokenBlacklist)(nil)
