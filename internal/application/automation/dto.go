package automation

import (
	"github.com/google/uuid"

	"github.com/agencydesk/backend/internal/domain/billing"
	"github.com/agencydesk/backend/internal/domain/jobrun"
)

// AgencySummary is the per-agency section of a run summary
type AgencySummary struct {
	AgencyID            uuid.UUID                  `json:"agencyId"`
	AgencyCode          string                     `json:"agencyCode,omitempty"`
	UpdatedCount        int64                      `json:"updatedCount"`
	Transitions         []billing.TransitionRecord `json:"transitions"`
	NotificationsSent   int                        `json:"notificationsSent"`
	NotificationsFailed int                        `json:"notificationsFailed"`
	Error               string                     `json:"error,omitempty"`
}

// RunSummary is the JSON body returned by the automation trigger endpoint
type RunSummary struct {
	Success              bool            `json:"success"`
	RunID                uuid.UUID       `json:"runId"`
	RecordsUpdated       int64           `json:"recordsUpdated"`
	NotificationsCreated int             `json:"notificationsCreated"`
	Agencies             []AgencySummary `json:"agencies"`
	Error                string          `json:"error,omitempty"`
}

func summaryFromRun(run *jobrun.Run) *RunSummary {
	agencies := make([]AgencySummary, 0, len(run.Metadata))
	for _, outcome := range run.Metadata {
		transitions := outcome.Transitions
		if transitions == nil {
			transitions = []billing.TransitionRecord{}
		}
		agencies = append(agencies, AgencySummary{
			AgencyID:            outcome.AgencyID,
			AgencyCode:          outcome.AgencyCode,
			UpdatedCount:        outcome.UpdatedCount,
			Transitions:         transitions,
			NotificationsSent:   outcome.NotificationsSent,
			NotificationsFailed: outcome.NotificationsFailed,
			Error:               outcome.Error,
		})
	}
	return &RunSummary{
		Success:              run.Status == jobrun.StatusSuccess,
		RunID:                run.ID,
		RecordsUpdated:       run.RecordsUpdated,
		NotificationsCreated: run.NotificationsSent + run.NotificationsFailed,
		Agencies:             agencies,
		Error:                run.Error,
	}
}
