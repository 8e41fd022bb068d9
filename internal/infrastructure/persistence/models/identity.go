package models

import (
	"github.com/agencydesk/backend/internal/domain/identity"
)

// AgencyModel is the persistence model for the Agency domain entity.
// Automation settings are flattened into columns so operators can inspect
// and fix them with plain SQL.
type AgencyModel struct {
	AggregateModel
	Code            string                `gorm:"type:varchar(50);not null;uniqueIndex:idx_agency_code"`
	Name            string                `gorm:"type:varchar(200);not null"`
	Status          identity.AgencyStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	ContactEmail    string                `gorm:"type:varchar(200)"`
	Timezone        string                `gorm:"type:varchar(64);not null;default:'UTC'"`
	DailyCutoff     string                `gorm:"type:varchar(5);not null;default:'17:00'"`
	DueSoonLeadDays int                   `gorm:"not null;default:4"`
}

// TableName returns the table name for GORM
func (AgencyModel) TableName() string {
	return "agencies"
}

// ToDomain converts the persistence model to a domain Agency entity.
func (m *AgencyModel) ToDomain() *identity.Agency {
	return &identity.Agency{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Code:              m.Code,
		Name:              m.Name,
		Status:            m.Status,
		ContactEmail:      m.ContactEmail,
		Settings: identity.AutomationSettings{
			Timezone:        m.Timezone,
			DailyCutoff:     m.DailyCutoff,
			DueSoonLeadDays: m.DueSoonLeadDays,
		},
	}
}

// FromDomain populates the persistence model from a domain Agency entity.
func (m *AgencyModel) FromDomain(a *identity.Agency) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.Code = a.Code
	m.Name = a.Name
	m.Status = a.Status
	m.ContactEmail = a.ContactEmail
	m.Timezone = a.Settings.Timezone
	m.DailyCutoff = a.Settings.DailyCutoff
	m.DueSoonLeadDays = a.Settings.DueSoonLeadDays
}

// AgencyModelFromDomain creates a new persistence model from a domain Agency entity.
func AgencyModelFromDomain(a *identity.Agency) *AgencyModel {
	m := &AgencyModel{}
	m.FromDomain(a)
	return m
}
