package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agencydesk/backend/internal/domain/shared"
)

// PlanStatus represents the lifecycle state of a payment plan
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "ACTIVE"
	PlanStatusCompleted PlanStatus = "COMPLETED"
	PlanStatusCancelled PlanStatus = "CANCELLED"
)

// IsValid checks if the plan status is valid
func (s PlanStatus) IsValid() bool {
	switch s {
	case PlanStatusActive, PlanStatusCompleted, PlanStatusCancelled:
		return true
	}
	return false
}

// PaymentPlan aggregates the installments of one enrollment. Expected
// commission is fixed at creation; earned commission is derived from paid
// installments and only ever recomputed through RecalculateCommission.
type PaymentPlan struct {
	shared.AgencyAggregateRoot
	EnrollmentID       uuid.UUID
	StudentName        string
	StudentEmail       string
	TotalAmount        decimal.Decimal
	ExpectedCommission decimal.Decimal
	EarnedCommission   decimal.Decimal
	Status             PlanStatus
}

// NewPaymentPlan creates an active payment plan
func NewPaymentPlan(agencyID, enrollmentID uuid.UUID, studentName, studentEmail string, totalAmount, expectedCommission decimal.Decimal) (*PaymentPlan, error) {
	if enrollmentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ENROLLMENT", "Payment plan must reference an enrollment")
	}
	if strings.TrimSpace(studentName) == "" {
		return nil, shared.NewDomainError("INVALID_STUDENT", "Payment plan requires a student name")
	}
	if totalAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Plan total amount cannot be negative")
	}
	if expectedCommission.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COMMISSION", "Expected commission cannot be negative")
	}
	return &PaymentPlan{
		AgencyAggregateRoot: shared.NewAgencyAggregateRoot(agencyID),
		EnrollmentID:        enrollmentID,
		StudentName:         strings.TrimSpace(studentName),
		StudentEmail:        strings.TrimSpace(studentEmail),
		TotalAmount:         totalAmount,
		ExpectedCommission:  expectedCommission,
		EarnedCommission:    decimal.Zero,
		Status:              PlanStatusActive,
	}, nil
}

// CommissionResult is the outcome of a commission recalculation
type CommissionResult struct {
	EarnedCommission decimal.Decimal
	PlanCompleted    bool
}

// RecalculateCommission derives the earned-commission aggregate from the
// plan's installments: (sum of paid amounts across installments in state
// paid ÷ total amount) × expected commission, rounded half-up to 2
// decimals. A zero total yields zero commission. The plan is complete when
// every non-cancelled installment is paid.
func (p *PaymentPlan) RecalculateCommission(installments []Installment) CommissionResult {
	paidTotal := decimal.Zero
	completed := len(installments) > 0
	counted := 0
	for idx := range installments {
		inst := &installments[idx]
		if inst.Status == InstallmentStatusCancelled {
			continue
		}
		counted++
		if inst.Status == InstallmentStatusPaid {
			paidTotal = paidTotal.Add(inst.PaidAmount())
		} else {
			completed = false
		}
	}
	if counted == 0 {
		completed = false
	}

	earned := decimal.Zero
	if p.TotalAmount.IsPositive() {
		earned = paidTotal.Div(p.TotalAmount).Mul(p.ExpectedCommission).Round(2)
	}
	return CommissionResult{EarnedCommission: earned, PlanCompleted: completed}
}

// ApplyCommission writes a recalculation result onto the plan aggregate
func (p *PaymentPlan) ApplyCommission(result CommissionResult) {
	p.EarnedCommission = result.EarnedCommission
	if p.Status != PlanStatusCancelled {
		if result.PlanCompleted {
			p.Status = PlanStatusCompleted
		} else {
			p.Status = PlanStatusActive
		}
	}
	p.UpdatedAt = time.Now()
}

// Cancel voids the plan
func (p *PaymentPlan) Cancel() error {
	if p.Status == PlanStatusCompleted {
		return shared.NewDomainError("INVALID_STATE", "Cannot cancel a completed plan")
	}
	p.Status = PlanStatusCancelled
	p.UpdatedAt = time.Now()
	return nil
}
