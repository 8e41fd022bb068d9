package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/agencydesk/backend/internal/domain/identity"
	"github.com/agencydesk/backend/internal/domain/shared"
	"github.com/agencydesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAgencyRepository implements AgencyRepository using GORM
type GormAgencyRepository struct {
	db *gorm.DB
}

// NewGormAgencyRepository creates a new GormAgencyRepository
func NewGormAgencyRepository(db *gorm.DB) *GormAgencyRepository {
	return &GormAgencyRepository{db: db}
}

// FindByID finds an agency by its ID
func (r *GormAgencyRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Agency, error) {
	var model models.AgencyModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds an agency by its code
func (r *GormAgencyRepository) FindByCode(ctx context.Context, code string) (*identity.Agency, error) {
	var model models.AgencyModel
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToLower(code)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActive finds all active agencies ordered by code for deterministic
// pipeline iteration
func (r *GormAgencyRepository) FindActive(ctx context.Context) ([]identity.Agency, error) {
	var agencyModels []models.AgencyModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", identity.AgencyStatusActive).
		Order("code ASC").
		Find(&agencyModels).Error; err != nil {
		return nil, err
	}

	agencies := make([]identity.Agency, len(agencyModels))
	for i, model := range agencyModels {
		agencies[i] = *model.ToDomain()
	}
	return agencies, nil
}

// Save creates or updates an agency
func (r *GormAgencyRepository) Save(ctx context.Context, agency *identity.Agency) error {
	model := models.AgencyModelFromDomain(agency)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Ensure GormAgencyRepository implements AgencyRepository
var _ identity.AgencyRepository = (*GormAgencyRepository)(nil)
