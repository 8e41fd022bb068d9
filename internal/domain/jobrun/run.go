package jobrun

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agencydesk/backend/internal/domain/billing"
	"github.com/agencydesk/backend/internal/domain/shared"
)

// Status is the lifecycle state of one pipeline invocation
type Status string

const (
	StatusRunning Status = "RUNNING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// IsValid checks if the run status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusRunning, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// IsTerminal checks if the run has finished
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// AgencyOutcome is the per-agency breakdown stored in the run metadata.
// A non-empty Error means that agency's batch failed while the run as a
// whole continued.
type AgencyOutcome struct {
	AgencyID            uuid.UUID                  `json:"agencyId"`
	AgencyCode          string                     `json:"agencyCode,omitempty"`
	UpdatedCount        int64                      `json:"updatedCount"`
	Transitions         []billing.TransitionRecord `json:"transitions,omitempty"`
	NotificationsSent   int                        `json:"notificationsSent"`
	NotificationsFailed int                        `json:"notificationsFailed"`
	Error               string                     `json:"error,omitempty"`
}

// RunMetadata is the structured per-agency breakdown, stored as JSONB
type RunMetadata []AgencyOutcome

// AllFailed reports whether every agency outcome carries an error. An empty
// breakdown is not a failure: a run over zero agencies did nothing wrong.
func (m RunMetadata) AllFailed() bool {
	if len(m) == 0 {
		return false
	}
	for _, outcome := range m {
		if outcome.Error == "" {
			return false
		}
	}
	return true
}

// Value implements driver.Valuer for database storage
func (m RunMetadata) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for database retrieval
func (m *RunMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = RunMetadata{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into RunMetadata", value)
	}
}

// Run is one ledger entry per pipeline invocation: created as running at
// start, finalized exactly once to success or failed.
type Run struct {
	shared.BaseEntity
	JobName             string
	Status              Status
	StartedAt           time.Time
	CompletedAt         *time.Time
	RecordsUpdated      int64
	NotificationsSent   int
	NotificationsFailed int
	Metadata            RunMetadata
	Error               string
}

// StartRun creates a running ledger entry
func StartRun(jobName string) (*Run, error) {
	if jobName == "" {
		return nil, shared.NewDomainError("INVALID_JOB_NAME", "Job name cannot be empty")
	}
	return &Run{
		BaseEntity: shared.NewBaseEntity(),
		JobName:    jobName,
		Status:     StatusRunning,
		StartedAt:  time.Now(),
		Metadata:   RunMetadata{},
	}, nil
}

// Complete finalizes the run as successful. Isolated per-agency failures
// inside the metadata do not demote a completed run; a run where every
// agency failed is finalized through FailWithResults instead.
func (r *Run) Complete(recordsUpdated int64, sent, failed int, metadata RunMetadata) error {
	if r.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Run has already been finalized")
	}
	now := time.Now()
	r.Status = StatusSuccess
	r.CompletedAt = &now
	r.RecordsUpdated = recordsUpdated
	r.NotificationsSent = sent
	r.NotificationsFailed = failed
	r.Metadata = metadata
	r.UpdatedAt = now
	return nil
}

// FailWithResults finalizes the run as failed while preserving the counters
// and the per-agency breakdown, for runs that reached every agency but
// succeeded for none of them.
func (r *Run) FailWithResults(recordsUpdated int64, sent, failed int, metadata RunMetadata, cause error) error {
	if r.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Run has already been finalized")
	}
	now := time.Now()
	r.Status = StatusFailed
	r.CompletedAt = &now
	r.RecordsUpdated = recordsUpdated
	r.NotificationsSent = sent
	r.NotificationsFailed = failed
	r.Metadata = metadata
	if cause != nil {
		r.Error = cause.Error()
	}
	r.UpdatedAt = now
	return nil
}

// Fail finalizes the run as failed with the fatal error
func (r *Run) Fail(cause error) error {
	if r.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Run has already been finalized")
	}
	now := time.Now()
	r.Status = StatusFailed
	r.CompletedAt = &now
	if cause != nil {
		r.Error = cause.Error()
	}
	r.UpdatedAt = now
	return nil
}

// Duration returns the run's elapsed time, zero while still running
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
