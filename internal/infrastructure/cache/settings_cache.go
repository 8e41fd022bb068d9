package cache

import (
	"context"
	"time"

	"github.com/agencydesk/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// SettingsCache caches per-agency automation settings. A (nil, nil) return
// from Get is a cache miss; callers fall through to the repository.
type SettingsCache interface {
	Get(ctx context.Context, agencyID uuid.UUID) (*identity.AutomationSettings, error)
	Set(ctx context.Context, agencyID uuid.UUID, settings identity.AutomationSettings, ttl time.Duration) error
	Delete(ctx context.Context, agencyID uuid.UUID) error
	Close() error
}

// DefaultSettingsTTL is used when the caller passes a zero TTL
const DefaultSettingsTTL = 5 * time.Minute
