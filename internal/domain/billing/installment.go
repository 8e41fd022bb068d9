package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agencydesk/backend/internal/domain/shared"
)

// InstallmentStatus represents the lifecycle state of an installment
type InstallmentStatus string

const (
	InstallmentStatusDraft     InstallmentStatus = "DRAFT"
	InstallmentStatusPending   InstallmentStatus = "PENDING"
	InstallmentStatusPartial   InstallmentStatus = "PARTIAL"
	InstallmentStatusPaid      InstallmentStatus = "PAID"
	InstallmentStatusOverdue   InstallmentStatus = "OVERDUE"
	InstallmentStatusCancelled InstallmentStatus = "CANCELLED"
)

// IsValid checks if the installment status is valid
func (s InstallmentStatus) IsValid() bool {
	switch s {
	case InstallmentStatusDraft, InstallmentStatusPending, InstallmentStatusPartial,
		InstallmentStatusPaid, InstallmentStatusOverdue, InstallmentStatusCancelled:
		return true
	}
	return false
}

// IsTerminal checks if the status is a terminal state. A paid or cancelled
// installment never re-enters pending or overdue.
func (s InstallmentStatus) IsTerminal() bool {
	return s == InstallmentStatusPaid || s == InstallmentStatusCancelled
}

// CanRecordPayment checks if a payment can be recorded in this status
func (s InstallmentStatus) CanRecordPayment() bool {
	switch s {
	case InstallmentStatusPending, InstallmentStatusPartial, InstallmentStatusOverdue:
		return true
	}
	return false
}

// overpaymentTolerance caps cumulative payments at 110% of the amount due.
var overpaymentTolerance = decimal.NewFromFloat(1.10)

// MaxPaymentNoteLength is the longest accepted free-text payment note.
const MaxPaymentNoteLength = 500

// Installment is one scheduled payment obligation under a payment plan.
// Due dates are calendar dates in the owning agency's local time zone.
type Installment struct {
	shared.AgencyAggregateRoot
	PlanID      uuid.UUID
	Sequence    int
	AmountDue   decimal.Decimal
	AmountPaid  *decimal.Decimal
	DueDate     time.Time
	PaidDate    *time.Time
	Status      InstallmentStatus
	PaymentNote string
}

// NewInstallment creates a draft installment under a plan
func NewInstallment(agencyID, planID uuid.UUID, sequence int, amountDue decimal.Decimal, dueDate time.Time) (*Installment, error) {
	if planID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PLAN", "Installment must belong to a payment plan")
	}
	if sequence < 1 {
		return nil, shared.NewDomainError("INVALID_SEQUENCE", "Installment sequence must be positive")
	}
	if amountDue.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Installment amount must be positive")
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Installment due date is required")
	}
	return &Installment{
		AgencyAggregateRoot: shared.NewAgencyAggregateRoot(agencyID),
		PlanID:              planID,
		Sequence:            sequence,
		AmountDue:           amountDue,
		DueDate:             DateOf(dueDate),
		Status:              InstallmentStatusDraft,
	}, nil
}

// Activate moves a draft installment into the pending state
func (i *Installment) Activate() error {
	if i.Status != InstallmentStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Only draft installments can be activated")
	}
	i.Status = InstallmentStatusPending
	i.UpdatedAt = time.Now()
	return nil
}

// PaidAmount returns the cumulative amount paid so far
func (i *Installment) PaidAmount() decimal.Decimal {
	if i.AmountPaid == nil {
		return decimal.Zero
	}
	return *i.AmountPaid
}

// Outstanding returns the unpaid remainder, never negative
func (i *Installment) Outstanding() decimal.Decimal {
	out := i.AmountDue.Sub(i.PaidAmount())
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// OverpaymentCeiling returns the maximum cumulative paid amount accepted
func (i *Installment) OverpaymentCeiling() decimal.Decimal {
	return i.AmountDue.Mul(overpaymentTolerance)
}

// RecordPayment applies a new payment on top of any amount already paid.
// The payment date is a calendar date that must not be after localToday,
// the caller's agency-local current date. The cumulative total is capped at
// the overpayment ceiling and decides the resulting state: paid once the
// amount due is covered, partial otherwise.
func (i *Installment) RecordPayment(amount decimal.Decimal, paidDate, localToday time.Time, note string) error {
	if !i.Status.CanRecordPayment() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot record a payment on a %s installment", i.Status))
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_PAYMENT_AMOUNT", "Payment amount must be positive")
	}
	// trailing zeros are fine: "100.000" carries no sub-cent value
	if !amount.Equal(amount.Truncate(2)) {
		return shared.NewDomainError("INVALID_PAYMENT_AMOUNT", "Payment amount cannot have more than 2 decimal places")
	}
	if len(note) > MaxPaymentNoteLength {
		return shared.NewDomainError("INVALID_PAYMENT_NOTE",
			fmt.Sprintf("Payment note cannot exceed %d characters", MaxPaymentNoteLength))
	}
	if paidDate.IsZero() {
		return shared.NewDomainError("INVALID_PAID_DATE", "Payment date is required")
	}
	if DateOf(paidDate).After(DateOf(localToday)) {
		return shared.NewDomainError("INVALID_PAID_DATE", "Payment date cannot be in the future")
	}

	newPaid := i.PaidAmount().Add(amount)
	if ceiling := i.OverpaymentCeiling(); newPaid.GreaterThan(ceiling) {
		return shared.NewDomainError("OVERPAYMENT_EXCEEDED",
			fmt.Sprintf("Payment amount cannot exceed %s", ceiling.Sub(i.PaidAmount()).StringFixed(2)))
	}

	paid := DateOf(paidDate)
	i.AmountPaid = &newPaid
	i.PaidDate = &paid
	if note != "" {
		i.PaymentNote = note
	}
	if newPaid.GreaterThanOrEqual(i.AmountDue) {
		i.Status = InstallmentStatusPaid
	} else {
		i.Status = InstallmentStatusPartial
	}
	i.UpdatedAt = time.Now()
	return nil
}

// MarkOverdue applies the pending→overdue transition
func (i *Installment) MarkOverdue() error {
	if i.Status != InstallmentStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending installments can become overdue")
	}
	i.Status = InstallmentStatusOverdue
	i.UpdatedAt = time.Now()
	return nil
}

// Cancel voids an installment that has not been fully paid
func (i *Installment) Cancel() error {
	if i.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot cancel a %s installment", i.Status))
	}
	i.Status = InstallmentStatusCancelled
	i.UpdatedAt = time.Now()
	return nil
}
