package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agencydesk/backend/internal/domain/billing"
)

// PaymentPlanModel is the persistence model for the PaymentPlan domain entity.
type PaymentPlanModel struct {
	AgencyAggregateModel
	EnrollmentID       uuid.UUID          `gorm:"type:uuid;not null;index"`
	StudentName        string             `gorm:"type:varchar(200);not null"`
	StudentEmail       string             `gorm:"type:varchar(200)"`
	TotalAmount        decimal.Decimal    `gorm:"type:decimal(18,2);not null;default:0"`
	ExpectedCommission decimal.Decimal    `gorm:"type:decimal(18,2);not null;default:0"`
	EarnedCommission   decimal.Decimal    `gorm:"type:decimal(18,2);not null;default:0"`
	Status             billing.PlanStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
}

// TableName returns the table name for GORM
func (PaymentPlanModel) TableName() string {
	return "payment_plans"
}

// ToDomain converts the persistence model to a domain PaymentPlan entity.
func (m *PaymentPlanModel) ToDomain() *billing.PaymentPlan {
	return &billing.PaymentPlan{
		AgencyAggregateRoot: m.ToDomainAgencyAggregateRoot(),
		EnrollmentID:        m.EnrollmentID,
		StudentName:         m.StudentName,
		StudentEmail:        m.StudentEmail,
		TotalAmount:         m.TotalAmount,
		ExpectedCommission:  m.ExpectedCommission,
		EarnedCommission:    m.EarnedCommission,
		Status:              m.Status,
	}
}

// FromDomain populates the persistence model from a domain PaymentPlan entity.
func (m *PaymentPlanModel) FromDomain(p *billing.PaymentPlan) {
	m.FromDomainAgencyAggregateRoot(p.AgencyAggregateRoot)
	m.EnrollmentID = p.EnrollmentID
	m.StudentName = p.StudentName
	m.StudentEmail = p.StudentEmail
	m.TotalAmount = p.TotalAmount
	m.ExpectedCommission = p.ExpectedCommission
	m.EarnedCommission = p.EarnedCommission
	m.Status = p.Status
}

// PaymentPlanModelFromDomain creates a new persistence model from a domain PaymentPlan entity.
func PaymentPlanModelFromDomain(p *billing.PaymentPlan) *PaymentPlanModel {
	m := &PaymentPlanModel{}
	m.FromDomain(p)
	return m
}

// InstallmentModel is the persistence model for the Installment domain entity.
// DueDate and PaidDate are calendar dates stored at UTC midnight.
type InstallmentModel struct {
	AgencyAggregateModel
	PlanID      uuid.UUID                 `gorm:"type:uuid;not null;index"`
	Sequence    int                       `gorm:"not null"`
	AmountDue   decimal.Decimal           `gorm:"type:decimal(18,2);not null"`
	AmountPaid  *decimal.Decimal          `gorm:"type:decimal(18,2)"`
	DueDate     time.Time                 `gorm:"type:date;not null;index"`
	PaidDate    *time.Time                `gorm:"type:date"`
	Status      billing.InstallmentStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	PaymentNote string                    `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InstallmentModel) TableName() string {
	return "installments"
}

// ToDomain converts the persistence model to a domain Installment entity.
func (m *InstallmentModel) ToDomain() *billing.Installment {
	return &billing.Installment{
		AgencyAggregateRoot: m.ToDomainAgencyAggregateRoot(),
		PlanID:              m.PlanID,
		Sequence:            m.Sequence,
		AmountDue:           m.AmountDue,
		AmountPaid:          m.AmountPaid,
		DueDate:             m.DueDate,
		PaidDate:            m.PaidDate,
		Status:              m.Status,
		PaymentNote:         m.PaymentNote,
	}
}

// FromDomain populates the persistence model from a domain Installment entity.
func (m *InstallmentModel) FromDomain(i *billing.Installment) {
	m.FromDomainAgencyAggregateRoot(i.AgencyAggregateRoot)
	m.PlanID = i.PlanID
	m.Sequence = i.Sequence
	m.AmountDue = i.AmountDue
	m.AmountPaid = i.AmountPaid
	m.DueDate = i.DueDate
	m.PaidDate = i.PaidDate
	m.Status = i.Status
	m.PaymentNote = i.PaymentNote
}

// InstallmentModelFromDomain creates a new persistence model from a domain Installment entity.
func InstallmentModelFromDomain(i *billing.Installment) *InstallmentModel {
	m := &InstallmentModel{}
	m.FromDomain(i)
	return m
}

// PaymentAuditModel is the persistence model for the PaymentAudit domain entity.
type PaymentAuditModel struct {
	BaseModel
	AgencyID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	InstallmentID uuid.UUID  `gorm:"type:uuid;not null;index"`
	PlanID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	OperatorID    *uuid.UUID `gorm:"type:uuid"`
	OldValues     JSONMap    `gorm:"type:jsonb"`
	NewValues     JSONMap    `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (PaymentAuditModel) TableName() string {
	return "payment_audits"
}

// ToDomain converts the persistence model to a domain PaymentAudit entity.
func (m *PaymentAuditModel) ToDomain() *billing.PaymentAudit {
	return &billing.PaymentAudit{
		BaseEntity:    m.BaseModel.ToDomain(),
		AgencyID:      m.AgencyID,
		InstallmentID: m.InstallmentID,
		PlanID:        m.PlanID,
		OperatorID:    m.OperatorID,
		OldValues:     m.OldValues,
		NewValues:     m.NewValues,
	}
}

// FromDomain populates the persistence model from a domain PaymentAudit entity.
func (m *PaymentAuditModel) FromDomain(a *billing.PaymentAudit) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.AgencyID = a.AgencyID
	m.InstallmentID = a.InstallmentID
	m.PlanID = a.PlanID
	m.OperatorID = a.OperatorID
	m.OldValues = a.OldValues
	m.NewValues = a.NewValues
}

// PaymentAuditModelFromDomain creates a new persistence model from a domain PaymentAudit entity.
func PaymentAuditModelFromDomain(a *billing.PaymentAudit) *PaymentAuditModel {
	m := &PaymentAuditModel{}
	m.FromDomain(a)
	return m
}
