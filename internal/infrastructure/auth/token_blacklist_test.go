package auth_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/agencydesk/backend/internal/infrastructure/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTokenBlacklistRevoke(t *testing.T) {
	blacklist := auth.NewInMemoryTokenBlacklist()
	ctx := context.Background()

	blacklist.Revoke("session-jti-1", time.Hour)

	revoked, err := blacklist.IsBlacklisted(ctx, "session-jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = blacklist.IsBlacklisted(ctx, "session-jti-2")
	require.NoError(t, err)
	assert.False(t, revoked, "only the revoked JTI is affected")
}

func TestInMemoryTokenBlacklistMarkExpiry(t *testing.T) {
	blacklist := auth.NewInMemoryTokenBlacklist()
	ctx := context.Background()

	// A mark that has outlived its TTL no longer blocks the token. The
	// token itself expired with it, so this is safe.
	blacklist.Revoke("short-lived", time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	revoked, err := blacklist.IsBlacklisted(ctx, "short-lived")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestInMemoryTokenBlacklistForceLogout(t *testing.T) {
	blacklist := auth.NewInMemoryTokenBlacklist()
	ctx := context.Background()

	issuedEarlier := time.Now().Add(-time.Hour)

	invalidated, err := blacklist.IsUserTokenInvalidated(ctx, "operator-1", issuedEarlier)
	require.NoError(t, err)
	assert.False(t, invalidated, "no force-logout mark yet")

	blacklist.ForceLogout("operator-1")

	invalidated, err = blacklist.IsUserTokenInvalidated(ctx, "operator-1", issuedEarlier)
	require.NoError(t, err)
	assert.True(t, invalidated, "tokens issued before the mark are out")

	time.Sleep(2 * time.Millisecond)
	invalidated, err = blacklist.IsUserTokenInvalidated(ctx, "operator-1", time.Now())
	require.NoError(t, err)
	assert.False(t, invalidated, "a token issued after the mark is fine")

	invalidated, err = blacklist.IsUserTokenInvalidated(ctx, "operator-2", issuedEarlier)
	require.NoError(t, err)
	assert.False(t, invalidated, "other operators are untouched")
}

func TestInMemoryTokenBlacklistIndependentMarks(t *testing.T) {
	blacklist := auth.NewInMemoryTokenBlacklist()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		blacklist.Revoke(fmt.Sprintf("jti-%d", i), time.Hour)
	}

	for i := 0; i < 5; i++ {
		jti := fmt.Sprintf("jti-%d", i)
		revoked, err := blacklist.IsBlacklisted(ctx, jti)
		require.NoError(t, err)
		assert.True(t, revoked, "jti %s should be revoked", jti)
	}

	revoked, err := blacklist.IsBlacklisted(ctx, "jti-99")
	require.NoError(t, err)
	assert.False(t, revoked)
}
