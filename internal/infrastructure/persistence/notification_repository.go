package persistence

import (
	"context"
	"errors"

	"github.com/agencydesk/backend/internal/domain/notification"
	"github.com/agencydesk/backend/internal/domain/shared"
	"github.com/agencydesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormNotificationRepository implements notification.Repository using GORM
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Create inserts a notification record. A second record for the same
// (installment, kind) pair hits the unique index and surfaces as
// shared.ErrAlreadyExists so overlapping runs stay idempotent.
func (r *GormNotificationRepository) Create(ctx context.Context, record *notification.Record) error {
	model := models.NotificationModelFromDomain(record)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Exists reports whether a record already exists for the installment and kind
func (r *GormNotificationRepository) Exists(ctx context.Context, agencyID, installmentID uuid.UUID, kind notification.Kind) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.NotificationModel{}).
		Where("agency_id = ? AND installment_id = ? AND kind = ?", agencyID, installmentID, kind).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByInstallment returns all notification records for an installment
func (r *GormNotificationRepository) FindByInstallment(ctx context.Context, agencyID, installmentID uuid.UUID) ([]notification.Record, error) {
	var notificationModels []models.NotificationModel
	if err := r.db.WithContext(ctx).
		Where("agency_id = ? AND installment_id = ?", agencyID, installmentID).
		Order("created_at ASC").
		Find(&notificationModels).Error; err != nil {
		return nil, err
	}

	records := make([]notification.Record, len(notificationModels))
	for i, model := range notificationModels {
		records[i] = *model.ToDomain()
	}
	return records, nil
}

// Ensure GormNotificationRepository implements notification.Repository
var _ notification.Repository = (*GormNotificationRepository)(nil)
