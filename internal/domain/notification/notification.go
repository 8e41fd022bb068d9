package notification

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agencydesk/backend/internal/domain/shared"
)

// Kind is the reminder category of a notification
type Kind string

const (
	KindDueSoon Kind = "DUE_SOON"
	KindOverdue Kind = "OVERDUE"
)

// IsValid checks if the kind is valid
func (k Kind) IsValid() bool {
	return k == KindDueSoon || k == KindOverdue
}

// DeliveryStatus is the outcome recorded for a notification attempt
type DeliveryStatus string

const (
	StatusPending DeliveryStatus = "PENDING"
	StatusSent    DeliveryStatus = "SENT"
	StatusFailed  DeliveryStatus = "FAILED"
)

// Record is the evidence that a reminder was attempted for one
// installment. At most one record exists per (installment, kind); a failed
// attempt is a terminal record, not retried by later runs.
type Record struct {
	shared.BaseEntity
	AgencyID       uuid.UUID
	InstallmentID  uuid.UUID
	RecipientEmail string
	RecipientName  string
	Kind           Kind
	Status         DeliveryStatus
	ErrorDetail    string
	SentAt         *time.Time
}

// NewRecord creates a pending notification record
func NewRecord(agencyID, installmentID uuid.UUID, recipientEmail, recipientName string, kind Kind) (*Record, error) {
	if installmentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INSTALLMENT", "Notification must reference an installment")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Unknown notification kind")
	}
	if strings.TrimSpace(recipientEmail) == "" {
		return nil, shared.NewDomainError("INVALID_RECIPIENT", "Notification requires a recipient address")
	}
	return &Record{
		BaseEntity:     shared.NewBaseEntity(),
		AgencyID:       agencyID,
		InstallmentID:  installmentID,
		RecipientEmail: strings.TrimSpace(recipientEmail),
		RecipientName:  strings.TrimSpace(recipientName),
		Kind:           kind,
		Status:         StatusPending,
	}, nil
}

// MarkSent finalizes the record as delivered
func (r *Record) MarkSent(at time.Time) {
	r.Status = StatusSent
	r.SentAt = &at
	r.ErrorDetail = ""
	r.UpdatedAt = time.Now()
}

// MarkFailed finalizes the record with the delivery error
func (r *Record) MarkFailed(detail string) {
	r.Status = StatusFailed
	r.ErrorDetail = detail
	r.UpdatedAt = time.Now()
}
