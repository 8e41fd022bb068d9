package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appbilling "github.com/agencydesk/backend/internal/application/billing"
	"github.com/agencydesk/backend/internal/domain/identity"
)

// AgencySettingsProvider resolves automation settings for an agency through
// the cache, falling back to the agency repository on a miss. Cache errors
// degrade to a repository read rather than failing the caller; settings are
// normalized before they are returned or cached.
type AgencySettingsProvider struct {
	agencies identity.AgencyRepository
	cache    SettingsCache
	ttl      time.Duration
	logger   *zap.Logger
}

// NewAgencySettingsProvider creates a new AgencySettingsProvider
func NewAgencySettingsProvider(agencies identity.AgencyRepository, cache SettingsCache, ttl time.Duration, logger *zap.Logger) *AgencySettingsProvider {
	if ttl == 0 {
		ttl = DefaultSettingsTTL
	}
	return &AgencySettingsProvider{
		agencies: agencies,
		cache:    cache,
		ttl:      ttl,
		logger:   logger,
	}
}

// AutomationSettings returns the agency's normalized automation settings
func (p *AgencySettingsProvider) AutomationSettings(ctx context.Context, agencyID uuid.UUID) (identity.AutomationSettings, error) {
	if cached, err := p.cache.Get(ctx, agencyID); err != nil {
		p.logger.Warn("Settings cache read failed, falling back to repository",
			zap.String("agency_id", agencyID.String()),
			zap.Error(err))
	} else if cached != nil {
		return cached.Normalized(), nil
	}

	agency, err := p.agencies.FindByID(ctx, agencyID)
	if err != nil {
		return identity.AutomationSettings{}, err
	}

	settings := agency.Settings.Normalized()
	if err := p.cache.Set(ctx, agencyID, settings, p.ttl); err != nil {
		p.logger.Warn("Settings cache write failed",
			zap.String("agency_id", agencyID.String()),
			zap.Error(err))
	}
	return settings, nil
}

// Invalidate drops the cached settings of an agency, forcing the next read
// through to the repository. Called after a settings update.
func (p *AgencySettingsProvider) Invalidate(ctx context.Context, agencyID uuid.UUID) {
	if err := p.cache.Delete(ctx, agencyID); err != nil {
		p.logger.Warn("Settings cache invalidation failed",
			zap.String("agency_id", agencyID.String()),
			zap.Error(err))
	}
}

// Ensure AgencySettingsProvider implements SettingsProvider
var _ appbilling.SettingsProvider = (*AgencySettingsProvider)(nil)
