package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/agencydesk/backend/internal/domain/billing"
	"github.com/agencydesk/backend/internal/domain/shared"
	"github.com/agencydesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInstallmentRepository implements InstallmentRepository using GORM
type GormInstallmentRepository struct {
	db *gorm.DB
}

// NewGormInstallmentRepository creates a new GormInstallmentRepository
func NewGormInstallmentRepository(db *gorm.DB) *GormInstallmentRepository {
	return &GormInstallmentRepository{db: db}
}

// FindByIDForAgency finds an installment by ID within an agency
func (r *GormInstallmentRepository) FindByIDForAgency(ctx context.Context, agencyID, id uuid.UUID) (*billing.Installment, error) {
	var model models.InstallmentModel
	if err := r.db.WithContext(ctx).
		Where("agency_id = ? AND id = ?", agencyID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPlan finds all installments of a plan ordered by sequence
func (r *GormInstallmentRepository) FindByPlan(ctx context.Context, agencyID, planID uuid.UUID) ([]billing.Installment, error) {
	var installmentModels []models.InstallmentModel
	if err := r.db.WithContext(ctx).
		Where("agency_id = ? AND plan_id = ?", agencyID, planID).
		Order("sequence ASC").
		Find(&installmentModels).Error; err != nil {
		return nil, err
	}

	installments := make([]billing.Installment, len(installmentModels))
	for i, model := range installmentModels {
		installments[i] = *model.ToDomain()
	}
	return installments, nil
}

// TransitionDueInstallments marks every due pending installment of the
// agency overdue in one transaction. Candidate rows are locked, evaluated
// with the domain transition rule, and updated as a single batch. Rows
// already moved by a concurrent run are skipped by the status guard on the
// update, so repeated calls the same day update zero rows.
func (r *GormInstallmentRepository) TransitionDueInstallments(ctx context.Context, agencyID uuid.UUID, localToday time.Time, cutoffPassed bool) (*billing.TransitionBatch, error) {
	today := billing.DateOf(localToday)
	batch := &billing.TransitionBatch{Transitions: []billing.TransitionRecord{}}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []models.InstallmentModel
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("agency_id = ? AND status = ? AND due_date <= ?",
				agencyID, billing.InstallmentStatusPending, today).
			Order("due_date ASC, sequence ASC").
			Find(&candidates).Error; err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0, len(candidates))
		for i := range candidates {
			m := &candidates[i]
			next, changed := billing.EvaluateTransition(m.Status, m.DueDate, today, cutoffPassed)
			if !changed {
				continue
			}
			ids = append(ids, m.ID)
			batch.Transitions = append(batch.Transitions, billing.TransitionRecord{
				InstallmentID: m.ID,
				PlanID:        m.PlanID,
				Sequence:      m.Sequence,
				From:          m.Status,
				To:            next,
				DueDate:       m.DueDate,
			})
		}
		if len(ids) == 0 {
			return nil
		}

		result := tx.Model(&models.InstallmentModel{}).
			Where("id IN ? AND status = ?", ids, billing.InstallmentStatusPending).
			Updates(map[string]interface{}{
				"status":     billing.InstallmentStatusOverdue,
				"updated_at": time.Now(),
				"version":    gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		batch.UpdatedCount = result.RowsAffected
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// reminderRow is the scan target for the installment/plan join queries
type reminderRow struct {
	InstallmentID uuid.UUID
	PlanID        uuid.UUID
	Sequence      int
	AmountDue     decimal.Decimal
	AmountPaid    decimal.Decimal
	DueDate       time.Time
	Status        billing.InstallmentStatus
	StudentName   string
	StudentEmail  string
}

func (row *reminderRow) toCandidate() billing.ReminderCandidate {
	outstanding := row.AmountDue.Sub(row.AmountPaid)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}
	return billing.ReminderCandidate{
		InstallmentID: row.InstallmentID,
		PlanID:        row.PlanID,
		Sequence:      row.Sequence,
		AmountDue:     row.AmountDue,
		Outstanding:   outstanding,
		DueDate:       row.DueDate,
		Status:        row.Status,
		StudentName:   row.StudentName,
		StudentEmail:  row.StudentEmail,
	}
}

const reminderSelect = `installments.id AS installment_id, installments.plan_id, installments.sequence,
installments.amount_due, COALESCE(installments.amount_paid, 0) AS amount_paid,
installments.due_date, installments.status, payment_plans.student_name, payment_plans.student_email`

// FindDueOn returns reminder candidates due on the given agency-local
// calendar date that still await payment. Installments under cancelled
// plans are excluded.
func (r *GormInstallmentRepository) FindDueOn(ctx context.Context, agencyID uuid.UUID, date time.Time) ([]billing.ReminderCandidate, error) {
	var rows []reminderRow
	if err := r.db.WithContext(ctx).
		Model(&models.InstallmentModel{}).
		Select(reminderSelect).
		Joins("JOIN payment_plans ON payment_plans.id = installments.plan_id").
		Where("installments.agency_id = ? AND installments.due_date = ?", agencyID, billing.DateOf(date)).
		Where("installments.status IN ?", []billing.InstallmentStatus{
			billing.InstallmentStatusPending, billing.InstallmentStatusPartial,
		}).
		Where("payment_plans.status <> ?", billing.PlanStatusCancelled).
		Order("installments.sequence ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	candidates := make([]billing.ReminderCandidate, len(rows))
	for i := range rows {
		candidates[i] = rows[i].toCandidate()
	}
	return candidates, nil
}

// FindOverdue returns reminder candidates currently overdue, oldest due
// date first. Installments under cancelled plans are excluded.
func (r *GormInstallmentRepository) FindOverdue(ctx context.Context, agencyID uuid.UUID) ([]billing.ReminderCandidate, error) {
	var rows []reminderRow
	if err := r.db.WithContext(ctx).
		Model(&models.InstallmentModel{}).
		Select(reminderSelect).
		Joins("JOIN payment_plans ON payment_plans.id = installments.plan_id").
		Where("installments.agency_id = ? AND installments.status = ?", agencyID, billing.InstallmentStatusOverdue).
		Where("payment_plans.status <> ?", billing.PlanStatusCancelled).
		Order("installments.due_date ASC, installments.sequence ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	candidates := make([]billing.ReminderCandidate, len(rows))
	for i := range rows {
		candidates[i] = rows[i].toCandidate()
	}
	return candidates, nil
}

// Save creates or updates an installment
func (r *GormInstallmentRepository) Save(ctx context.Context, installment *billing.Installment) error {
	model := models.InstallmentModelFromDomain(installment)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormInstallmentRepository implements InstallmentRepository
var _ billing.InstallmentRepository = (*GormInstallmentRepository)(nil)
