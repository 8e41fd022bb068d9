package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransitionRecord describes one applied state transition
type TransitionRecord struct {
	InstallmentID uuid.UUID         `json:"installmentId"`
	PlanID        uuid.UUID         `json:"planId"`
	Sequence      int               `json:"sequence"`
	From          InstallmentStatus `json:"from"`
	To            InstallmentStatus `json:"to"`
	DueDate       time.Time         `json:"dueDate"`
}

// TransitionBatch is the result of one per-agency transition pass
type TransitionBatch struct {
	UpdatedCount int64
	Transitions  []TransitionRecord
}

// ReminderCandidate is an installment joined with the plan contact details
// the notification step needs to address a reminder.
type ReminderCandidate struct {
	InstallmentID uuid.UUID
	PlanID        uuid.UUID
	Sequence      int
	AmountDue     decimal.Decimal
	Outstanding   decimal.Decimal
	DueDate       time.Time
	Status        InstallmentStatus
	StudentName   string
	StudentEmail  string
}

// InstallmentRepository defines the persistence interface for installments
type InstallmentRepository interface {
	FindByIDForAgency(ctx context.Context, agencyID, id uuid.UUID) (*Installment, error)
	FindByPlan(ctx context.Context, agencyID, planID uuid.UUID) ([]Installment, error)
	// TransitionDueInstallments applies the pending→overdue evaluation to
	// every due installment of the agency as one atomic batch. Safe to call
	// repeatedly: a second call the same day updates zero rows.
	TransitionDueInstallments(ctx context.Context, agencyID uuid.UUID, localToday time.Time, cutoffPassed bool) (*TransitionBatch, error)
	// FindDueOn returns reminder candidates whose due date is the given
	// agency-local calendar date and that still await payment.
	FindDueOn(ctx context.Context, agencyID uuid.UUID, date time.Time) ([]ReminderCandidate, error)
	// FindOverdue returns reminder candidates currently in the overdue state.
	FindOverdue(ctx context.Context, agencyID uuid.UUID) ([]ReminderCandidate, error)
	Save(ctx context.Context, installment *Installment) error
}

// PaymentPlanRepository defines the persistence interface for payment plans
type PaymentPlanRepository interface {
	FindByIDForAgency(ctx context.Context, agencyID, id uuid.UUID) (*PaymentPlan, error)
	Save(ctx context.Context, plan *PaymentPlan) error
}

// PaymentAuditRepository appends audit-trail entries
type PaymentAuditRepository interface {
	Create(ctx context.Context, entry *PaymentAudit) error
	FindByInstallment(ctx context.Context, agencyID, installmentID uuid.UUID) ([]PaymentAudit, error)
}
