package billing

import (
	"github.com/google/uuid"

	"github.com/agencydesk/backend/internal/domain/shared"
)

// PaymentAudit is one append-only audit-trail entry written in the same
// transaction as a successful payment recording. It captures the
// installment and plan state before and after the write so the financial
// history stays reconstructible.
type PaymentAudit struct {
	shared.BaseEntity
	AgencyID      uuid.UUID
	InstallmentID uuid.UUID
	PlanID        uuid.UUID
	OperatorID    *uuid.UUID
	OldValues     map[string]any
	NewValues     map[string]any
}

// NewPaymentAudit creates an audit entry for a payment recording
func NewPaymentAudit(agencyID, installmentID, planID uuid.UUID, operatorID *uuid.UUID, oldValues, newValues map[string]any) (*PaymentAudit, error) {
	if agencyID == uuid.Nil || installmentID == uuid.Nil || planID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_AUDIT", "Audit entry requires agency, installment and plan references")
	}
	return &PaymentAudit{
		BaseEntity:    shared.NewBaseEntity(),
		AgencyID:      agencyID,
		InstallmentID: installmentID,
		PlanID:        planID,
		OperatorID:    operatorID,
		OldValues:     oldValues,
		NewValues:     newValues,
	}, nil
}

// InstallmentSnapshot captures the audit-relevant fields of an installment
func InstallmentSnapshot(inst *Installment) map[string]any {
	return map[string]any{
		"status":      string(inst.Status),
		"amount_due":  inst.AmountDue.String(),
		"amount_paid": inst.PaidAmount().String(),
		"note":        inst.PaymentNote,
	}
}

// PlanSnapshot captures the audit-relevant fields of a payment plan
func PlanSnapshot(plan *PaymentPlan) map[string]any {
	return map[string]any{
		"status":            string(plan.Status),
		"earned_commission": plan.EarnedCommission.String(),
	}
}
