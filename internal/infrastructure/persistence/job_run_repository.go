package persistence

import (
	"context"
	"errors"

	"github.com/agencydesk/backend/internal/domain/jobrun"
	"github.com/agencydesk/backend/internal/domain/shared"
	"github.com/agencydesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormJobRunRepository implements jobrun.Repository using GORM
type GormJobRunRepository struct {
	db *gorm.DB
}

// NewGormJobRunRepository creates a new GormJobRunRepository
func NewGormJobRunRepository(db *gorm.DB) *GormJobRunRepository {
	return &GormJobRunRepository{db: db}
}

// Create inserts a new run ledger entry
func (r *GormJobRunRepository) Create(ctx context.Context, run *jobrun.Run) error {
	model := models.JobRunModelFromDomain(run)
	return r.db.WithContext(ctx).Create(model).Error
}

// Save updates a run ledger entry
func (r *GormJobRunRepository) Save(ctx context.Context, run *jobrun.Run) error {
	model := models.JobRunModelFromDomain(run)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a run by its ID
func (r *GormJobRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*jobrun.Run, error) {
	var model models.JobRunModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindLatest finds the most recently started run of a job
func (r *GormJobRunRepository) FindLatest(ctx context.Context, jobName string) (*jobrun.Run, error) {
	var model models.JobRunModel
	if err := r.db.WithContext(ctx).
		Where("job_name = ?", jobName).
		Order("started_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindRecent finds the most recent runs of a job, newest first
func (r *GormJobRunRepository) FindRecent(ctx context.Context, jobName string, limit int) ([]jobrun.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	var runModels []models.JobRunModel
	if err := r.db.WithContext(ctx).
		Where("job_name = ?", jobName).
		Order("started_at DESC").
		Limit(limit).
		Find(&runModels).Error; err != nil {
		return nil, err
	}

	runs := make([]jobrun.Run, len(runModels))
	for i, model := range runModels {
		runs[i] = *model.ToDomain()
	}
	return runs, nil
}

// Ensure GormJobRunRepository implements jobrun.Repository
var _ jobrun.Repository = (*GormJobRunRepository)(nil)
