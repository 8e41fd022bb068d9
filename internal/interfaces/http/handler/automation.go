package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agencydesk/backend/internal/application/automation"
	"github.com/agencydesk/backend/internal/domain/jobrun"
	"github.com/agencydesk/backend/internal/domain/shared"
)

// PipelineTrigger executes one installment lifecycle run on demand
type PipelineTrigger interface {
	RunOnce(ctx context.Context) (*automation.RunSummary, error)
}

// SchedulerStatusReporter exposes the cron scheduler's current state
type SchedulerStatusReporter interface {
	GetStatus() map[string]any
}

// AutomationHandler handles the installment pipeline trigger and status endpoints
type AutomationHandler struct {
	BaseHandler
	pipeline  PipelineTrigger
	runs      jobrun.Repository
	scheduler SchedulerStatusReporter
}

// NewAutomationHandler creates a new AutomationHandler
func NewAutomationHandler(pipeline PipelineTrigger, runs jobrun.Repository, scheduler SchedulerStatusReporter) *AutomationHandler {
	return &AutomationHandler{
		pipeline:  pipeline,
		runs:      runs,
		scheduler: scheduler,
	}
}

// TriggerRun godoc
// @ID           triggerInstallmentRun
// @Summary      Trigger an installment lifecycle run
// @Description  Runs the due-date transition and reminder pipeline synchronously and returns the run summary
// @Tags         automation
// @Produce      json
// @Success      200 {object} automation.RunSummary
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /automation/installments/run [post]
func (h *AutomationHandler) TriggerRun(c *gin.Context) {
	summary, err := h.pipeline.RunOnce(c.Request.Context())
	if err != nil {
		h.InternalError(c, "Pipeline run failed: "+err.Error())
		return
	}
	// the run summary already carries its own success flag, so it is the
	// response body rather than a payload inside the standard envelope
	c.JSON(http.StatusOK, summary)
}

// RunView is the ledger entry section of a status response
type RunView struct {
	RunID               uuid.UUID  `json:"runId"`
	JobName             string     `json:"jobName"`
	Status              string     `json:"status"`
	StartedAt           time.Time  `json:"startedAt"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
	RecordsUpdated      int64      `json:"recordsUpdated"`
	NotificationsSent   int        `json:"notificationsSent"`
	NotificationsFailed int        `json:"notificationsFailed"`
	Error               string     `json:"error,omitempty"`
}

// StatusResponse reports the scheduler state and recent run history
type StatusResponse struct {
	Scheduler  map[string]any `json:"scheduler,omitempty"`
	LastRun    *RunView       `json:"lastRun,omitempty"`
	RecentRuns []RunView      `json:"recentRuns"`
}

// GetStatus godoc
// @ID           getInstallmentRunStatus
// @Summary      Get installment pipeline status
// @Description  Returns the cron scheduler state, the latest run and recent run history
// @Tags         automation
// @Produce      json
// @Success      200 {object} APIResponse[StatusResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /automation/installments/status [get]
func (h *AutomationHandler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()
	resp := StatusResponse{RecentRuns: []RunView{}}

	if h.scheduler != nil {
		resp.Scheduler = h.scheduler.GetStatus()
	}

	latest, err := h.runs.FindLatest(ctx, automation.JobName)
	switch {
	case err == nil:
		view := toRunView(latest)
		resp.LastRun = &view
	case errors.Is(err, shared.ErrNotFound):
		// No runs yet
	default:
		h.HandleError(c, err)
		return
	}

	recent, err := h.runs.FindRecent(ctx, automation.JobName, 10)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	for i := range recent {
		resp.RecentRuns = append(resp.RecentRuns, toRunView(&recent[i]))
	}

	h.Success(c, resp)
}

func toRunView(run *jobrun.Run) RunView {
	return RunView{
		RunID:               run.ID,
		JobName:             run.JobName,
		Status:              string(run.Status),
		StartedAt:           run.StartedAt,
		CompletedAt:         run.CompletedAt,
		RecordsUpdated:      run.RecordsUpdated,
		NotificationsSent:   run.NotificationsSent,
		NotificationsFailed: run.NotificationsFailed,
		Error:               run.Error,
	}
}
