package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencydesk/backend/internal/application/automation"
	"github.com/agencydesk/backend/internal/domain/jobrun"
	"github.com/agencydesk/backend/internal/domain/shared"
)

type stubPipeline struct {
	summary *automation.RunSummary
	err     error
}

func (s *stubPipeline) RunOnce(_ context.Context) (*automation.RunSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.summary, nil
}

// stubRunRepo serves canned ledger entries
type stubRunRepo struct {
	latest    *jobrun.Run
	latestErr error
	recent    []jobrun.Run
	recentErr error
}

func (s *stubRunRepo) Create(context.Context, *jobrun.Run) error { return nil }
func (s *stubRunRepo) Save(context.Context, *jobrun.Run) error   { return nil }
func (s *stubRunRepo) FindByID(context.Context, uuid.UUID) (*jobrun.Run, error) {
	return nil, shared.ErrNotFound
}
func (s *stubRunRepo) FindLatest(context.Context, string) (*jobrun.Run, error) {
	return s.latest, s.latestErr
}
func (s *stubRunRepo) FindRecent(context.Context, string, int) ([]jobrun.Run, error) {
	return s.recent, s.recentErr
}

type stubScheduler struct {
	status map[string]any
}

func (s *stubScheduler) GetStatus() map[string]any { return s.status }

func completedRun(t *testing.T) *jobrun.Run {
	t.Helper()
	run, err := jobrun.StartRun(automation.JobName)
	require.NoError(t, err)
	require.NoError(t, run.Complete(5, 3, 1, jobrun.RunMetadata{
		{AgencyID: uuid.New(), AgencyCode: "ACME", UpdatedCount: 5, NotificationsSent: 3, NotificationsFailed: 1},
	}))
	return run
}

func TestTriggerRunSuccess(t *testing.T) {
	pipeline := &stubPipeline{
		summary: &automation.RunSummary{
			Success:              true,
			RunID:                uuid.New(),
			RecordsUpdated:       7,
			NotificationsCreated: 4,
			Agencies:             []automation.AgencySummary{},
		},
	}
	h := NewAutomationHandler(pipeline, &stubRunRepo{}, nil)

	router := gin.New()
	router.POST("/automation/installments/run", h.TriggerRun)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/automation/installments/run", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	// the summary is the response body itself, not wrapped in the envelope
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotContains(t, body, "data")

	var resp automation.RunSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, pipeline.summary.RunID, resp.RunID)
	assert.Equal(t, int64(7), resp.RecordsUpdated)
	assert.Equal(t, 4, resp.NotificationsCreated)
}

func TestTriggerRunFailure(t *testing.T) {
	pipeline := &stubPipeline{err: errors.New("database unavailable")}
	h := NewAutomationHandler(pipeline, &stubRunRepo{}, nil)

	router := gin.New()
	router.POST("/automation/installments/run", h.TriggerRun)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/automation/installments/run", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Pipeline run failed")
}

func setupStatusRouter(h *AutomationHandler) *gin.Engine {
	router := gin.New()
	router.GET("/automation/installments/status", h.GetStatus)
	return router
}

func getStatusHTTP(t *testing.T, router *gin.Engine) (*httptest.ResponseRecorder, StatusResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/automation/installments/status", nil)
	router.ServeHTTP(w, req)

	var resp struct {
		Success bool           `json:"success"`
		Data    StatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp.Data
}

func TestGetStatusWithHistory(t *testing.T) {
	run := completedRun(t)
	repo := &stubRunRepo{
		latest: run,
		recent: []jobrun.Run{*run},
	}
	scheduler := &stubScheduler{status: map[string]any{
		"running":       true,
		"cron_schedule": "0 2 * * *",
	}}
	h := NewAutomationHandler(&stubPipeline{}, repo, scheduler)

	w, status := getStatusHTTP(t, setupStatusRouter(h))

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, status.Scheduler)
	assert.Equal(t, true, status.Scheduler["running"])

	require.NotNil(t, status.LastRun)
	assert.Equal(t, run.ID, status.LastRun.RunID)
	assert.Equal(t, automation.JobName, status.LastRun.JobName)
	assert.Equal(t, string(jobrun.StatusSuccess), status.LastRun.Status)
	assert.Equal(t, int64(5), status.LastRun.RecordsUpdated)
	assert.Equal(t, 3, status.LastRun.NotificationsSent)
	assert.Equal(t, 1, status.LastRun.NotificationsFailed)
	require.NotNil(t, status.LastRun.CompletedAt)
	assert.WithinDuration(t, time.Now(), *status.LastRun.CompletedAt, time.Minute)

	require.Len(t, status.RecentRuns, 1)
	assert.Equal(t, run.ID, status.RecentRuns[0].RunID)
}

func TestGetStatusNoRunsYet(t *testing.T) {
	repo := &stubRunRepo{
		latestErr: shared.ErrNotFound,
		recent:    []jobrun.Run{},
	}
	h := NewAutomationHandler(&stubPipeline{}, repo, nil)

	w, status := getStatusHTTP(t, setupStatusRouter(h))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, status.Scheduler)
	assert.Nil(t, status.LastRun)
	assert.Empty(t, status.RecentRuns)
}

func TestGetStatusRepositoryError(t *testing.T) {
	repo := &stubRunRepo{latestErr: errors.New("connection reset")}
	h := NewAutomationHandler(&stubPipeline{}, repo, nil)

	router := setupStatusRouter(h)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/automation/installments/status", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
