package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/agencydesk/backend/internal/domain/notification"
)

// NotificationModel is the persistence model for the notification Record
// domain entity. The unique (installment_id, kind) index is the backstop
// against double-notifying when runs overlap.
type NotificationModel struct {
	BaseModel
	AgencyID       uuid.UUID                   `gorm:"type:uuid;not null;index"`
	InstallmentID  uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_notification_installment_kind,priority:1"`
	Kind           notification.Kind           `gorm:"type:varchar(20);not null;uniqueIndex:idx_notification_installment_kind,priority:2"`
	RecipientEmail string                      `gorm:"type:varchar(200);not null"`
	RecipientName  string                      `gorm:"type:varchar(200)"`
	Status         notification.DeliveryStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	ErrorDetail    string                      `gorm:"type:text"`
	SentAt         *time.Time
}

// TableName returns the table name for GORM
func (NotificationModel) TableName() string {
	return "notifications"
}

// ToDomain converts the persistence model to a domain notification Record.
func (m *NotificationModel) ToDomain() *notification.Record {
	return &notification.Record{
		BaseEntity:     m.BaseModel.ToDomain(),
		AgencyID:       m.AgencyID,
		InstallmentID:  m.InstallmentID,
		RecipientEmail: m.RecipientEmail,
		RecipientName:  m.RecipientName,
		Kind:           m.Kind,
		Status:         m.Status,
		ErrorDetail:    m.ErrorDetail,
		SentAt:         m.SentAt,
	}
}

// FromDomain populates the persistence model from a domain notification Record.
func (m *NotificationModel) FromDomain(r *notification.Record) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.AgencyID = r.AgencyID
	m.InstallmentID = r.InstallmentID
	m.RecipientEmail = r.RecipientEmail
	m.RecipientName = r.RecipientName
	m.Kind = r.Kind
	m.Status = r.Status
	m.ErrorDetail = r.ErrorDetail
	m.SentAt = r.SentAt
}

// NotificationModelFromDomain creates a new persistence model from a domain notification Record.
func NotificationModelFromDomain(r *notification.Record) *NotificationModel {
	m := &NotificationModel{}
	m.FromDomain(r)
	return m
}
