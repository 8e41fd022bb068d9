package models

import (
	"time"

	"github.com/agencydesk/backend/internal/domain/jobrun"
)

// JobRunModel is the persistence model for the job run ledger.
// Metadata carries its own JSONB marshalling via jobrun.RunMetadata.
type JobRunModel struct {
	BaseModel
	JobName             string             `gorm:"type:varchar(100);not null;index"`
	Status              jobrun.Status      `gorm:"type:varchar(20);not null;index"`
	StartedAt           time.Time          `gorm:"not null;index"`
	CompletedAt         *time.Time
	RecordsUpdated      int64              `gorm:"not null;default:0"`
	NotificationsSent   int                `gorm:"not null;default:0"`
	NotificationsFailed int                `gorm:"not null;default:0"`
	Metadata            jobrun.RunMetadata `gorm:"type:jsonb"`
	Error               string             `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (JobRunModel) TableName() string {
	return "job_runs"
}

// ToDomain converts the persistence model to a domain Run entity.
func (m *JobRunModel) ToDomain() *jobrun.Run {
	return &jobrun.Run{
		BaseEntity:          m.BaseModel.ToDomain(),
		JobName:             m.JobName,
		Status:              m.Status,
		StartedAt:           m.StartedAt,
		CompletedAt:         m.CompletedAt,
		RecordsUpdated:      m.RecordsUpdated,
		NotificationsSent:   m.NotificationsSent,
		NotificationsFailed: m.NotificationsFailed,
		Metadata:            m.Metadata,
		Error:               m.Error,
	}
}

// FromDomain populates the persistence model from a domain Run entity.
func (m *JobRunModel) FromDomain(r *jobrun.Run) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.JobName = r.JobName
	m.Status = r.Status
	m.StartedAt = r.StartedAt
	m.CompletedAt = r.CompletedAt
	m.RecordsUpdated = r.RecordsUpdated
	m.NotificationsSent = r.NotificationsSent
	m.NotificationsFailed = r.NotificationsFailed
	m.Metadata = r.Metadata
	m.Error = r.Error
}

// JobRunModelFromDomain creates a new persistence model from a domain Run entity.
func JobRunModelFromDomain(r *jobrun.Run) *JobRunModel {
	m := &JobRunModel{}
	m.FromDomain(r)
	return m
}
