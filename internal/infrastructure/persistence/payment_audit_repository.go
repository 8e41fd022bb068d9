package persistence

import (
	"context"

	"github.com/agencydesk/backend/internal/domain/billing"
	"github.com/agencydesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentAuditRepository implements PaymentAuditRepository using GORM.
// Audit rows are append-only; there is no update or delete path.
type GormPaymentAuditRepository struct {
	db *gorm.DB
}

// NewGormPaymentAuditRepository creates a new GormPaymentAuditRepository
func NewGormPaymentAuditRepository(db *gorm.DB) *GormPaymentAuditRepository {
	return &GormPaymentAuditRepository{db: db}
}

// Create appends an audit entry
func (r *GormPaymentAuditRepository) Create(ctx context.Context, entry *billing.PaymentAudit) error {
	model := models.PaymentAuditModelFromDomain(entry)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByInstallment returns the audit trail of an installment, newest first
func (r *GormPaymentAuditRepository) FindByInstallment(ctx context.Context, agencyID, installmentID uuid.UUID) ([]billing.PaymentAudit, error) {
	var auditModels []models.PaymentAuditModel
	if err := r.db.WithContext(ctx).
		Where("agency_id = ? AND installment_id = ?", agencyID, installmentID).
		Order("created_at DESC").
		Find(&auditModels).Error; err != nil {
		return nil, err
	}

	entries := make([]billing.PaymentAudit, len(auditModels))
	for i, model := range auditModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// Ensure GormPaymentAuditRepository implements PaymentAuditRepository
var _ billing.PaymentAuditRepository = (*GormPaymentAuditRepository)(nil)
