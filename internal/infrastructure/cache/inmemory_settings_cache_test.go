package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agencydesk/backend/internal/domain/identity"
	"github.com/agencydesk/backend/internal/domain/shared"
)

func TestInMemorySettingsCache(t *testing.T) {
	t.Run("miss then hit", func(t *testing.T) {
		c := NewInMemorySettingsCache()
		defer c.Close()

		agencyID := uuid.New()
		got, err := c.Get(context.Background(), agencyID)
		require.NoError(t, err)
		assert.Nil(t, got)

		settings := identity.AutomationSettings{Timezone: "Australia/Brisbane", DailyCutoff: "17:00", DueSoonLeadDays: 4}
		require.NoError(t, c.Set(context.Background(), agencyID, settings, time.Minute))

		got, err = c.Get(context.Background(), agencyID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, settings, *got)

		hits, misses := c.GetStats()
		assert.Equal(t, int64(1), hits)
		assert.Equal(t, int64(1), misses)
	})

	t.Run("expired entry is a miss", func(t *testing.T) {
		c := NewInMemorySettingsCache()
		defer c.Close()

		agencyID := uuid.New()
		require.NoError(t, c.Set(context.Background(), agencyID, identity.DefaultAutomationSettings(), time.Nanosecond))
		time.Sleep(5 * time.Millisecond)

		got, err := c.Get(context.Background(), agencyID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("delete removes the entry", func(t *testing.T) {
		c := NewInMemorySettingsCache()
		defer c.Close()

		agencyID := uuid.New()
		require.NoError(t, c.Set(context.Background(), agencyID, identity.DefaultAutomationSettings(), time.Minute))
		require.NoError(t, c.Delete(context.Background(), agencyID))

		got, err := c.Get(context.Background(), agencyID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		c := NewInMemorySettingsCache()
		assert.NoError(t, c.Close())
		assert.NoError(t, c.Close())
	})
}

// stubAgencyRepo serves a fixed agency and counts lookups
type stubAgencyRepo struct {
	agency *identity.Agency
	calls  int
}

func (r *stubAgencyRepo) FindByID(_ context.Context, id uuid.UUID) (*identity.Agency, error) {
	r.calls++
	if r.agency == nil || r.agency.ID != id {
		return nil, shared.ErrNotFound
	}
	return r.agency, nil
}

func (r *stubAgencyRepo) FindByCode(context.Context, string) (*identity.Agency, error) {
	return nil, errors.New("not implemented")
}

func (r *stubAgencyRepo) FindActive(context.Context) ([]identity.Agency, error) {
	return nil, errors.New("not implemented")
}

func (r *stubAgencyRepo) Save(context.Context, *identity.Agency) error {
	return errors.New("not implemented")
}

func TestAgencySettingsProvider(t *testing.T) {
	newAgency := func(t *testing.T) *identity.Agency {
		agency, err := identity.NewAgency("bne", "Brisbane Study Placements", "ops@bsp.example")
		require.NoError(t, err)
		require.NoError(t, agency.UpdateSettings(identity.AutomationSettings{
			Timezone:        "Australia/Brisbane",
			DailyCutoff:     "17:00",
			DueSoonLeadDays: 4,
		}))
		return agency
	}

	t.Run("second read is served from cache", func(t *testing.T) {
		c := NewInMemorySettingsCache()
		defer c.Close()
		repo := &stubAgencyRepo{agency: newAgency(t)}
		provider := NewAgencySettingsProvider(repo, c, time.Minute, zap.NewNop())

		first, err := provider.AutomationSettings(context.Background(), repo.agency.ID)
		require.NoError(t, err)
		second, err := provider.AutomationSettings(context.Background(), repo.agency.ID)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, "Australia/Brisbane", second.Timezone)
		assert.Equal(t, 1, repo.calls)
	})

	t.Run("invalidate forces a repository read", func(t *testing.T) {
		c := NewInMemorySettingsCache()
		defer c.Close()
		repo := &stubAgencyRepo{agency: newAgency(t)}
		provider := NewAgencySettingsProvider(repo, c, time.Minute, zap.NewNop())

		_, err := provider.AutomationSettings(context.Background(), repo.agency.ID)
		require.NoError(t, err)
		provider.Invalidate(context.Background(), repo.agency.ID)
		_, err = provider.AutomationSettings(context.Background(), repo.agency.ID)
		require.NoError(t, err)

		assert.Equal(t, 2, repo.calls)
	})

	t.Run("unknown agency surfaces ErrNotFound", func(t *testing.T) {
		c := NewInMemorySettingsCache()
		defer c.Close()
		provider := NewAgencySettingsProvider(&stubAgencyRepo{}, c, time.Minute, zap.NewNop())

		_, err := provider.AutomationSettings(context.Background(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
