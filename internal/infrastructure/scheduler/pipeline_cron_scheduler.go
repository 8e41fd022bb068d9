// Package scheduler provides cron-style triggering for the installment
// lifecycle pipeline.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agencydesk/backend/internal/application/automation"
)

// PipelineRunner executes one installment lifecycle run
type PipelineRunner interface {
	RunOnce(ctx context.Context) (*automation.RunSummary, error)
}

// PipelineCronSchedulerConfig holds configuration for the cron-based pipeline scheduler
type PipelineCronSchedulerConfig struct {
	Enabled    bool
	CronHour   int // 0-23
	CronMinute int // 0-59
	// RunTimeout bounds a single pipeline run
	RunTimeout time.Duration
}

// DefaultPipelineCronSchedulerConfig returns the default: one run per day at
// 02:00 server time. Per-agency cutoff semantics live inside the pipeline;
// the cron only decides when a run starts.
func DefaultPipelineCronSchedulerConfig() PipelineCronSchedulerConfig {
	return PipelineCronSchedulerConfig{
		Enabled:    true,
		CronHour:   2,
		CronMinute: 0,
		RunTimeout: 30 * time.Minute,
	}
}

// ParseCronSchedule extracts hour and minute from a daily cron expression of
// the form "MM HH * * *". An empty or truncated expression yields the 02:00
// default; a "*" field keeps that component's default; anything else must be
// a number in range.
func ParseCronSchedule(expr string) (hour, minute int, err error) {
	hour, minute = 2, 0

	fields := strings.Fields(expr)
	if len(fields) < 2 {
		return hour, minute, nil
	}

	if minute, err = cronField(fields[0], minute, 59, "minute"); err != nil {
		return 2, 0, err
	}
	if hour, err = cronField(fields[1], hour, 23, "hour"); err != nil {
		return 2, 0, err
	}
	return hour, minute, nil
}

func cronField(field string, fallback, max int, name string) (int, error) {
	if field == "" || field == "*" {
		return fallback, nil
	}
	v, err := strconv.Atoi(field)
	if err != nil {
		return fallback, fmt.Errorf("invalid cron %s %q", name, field)
	}
	if v < 0 || v > max {
		return fallback, fmt.Errorf("cron %s must be 0-%d, got %d", name, max, v)
	}
	return v, nil
}

// PipelineCronScheduler triggers the installment lifecycle pipeline once per
// day at the configured time. The pipeline itself writes the run ledger; the
// scheduler only decides when runs start and prevents a second run from
// starting while one is in flight.
type PipelineCronScheduler struct {
	config   PipelineCronSchedulerConfig
	pipeline PipelineRunner
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	running   bool
	inFlight  bool
	lastRunAt *time.Time
	nextRunAt *time.Time
}

// NewPipelineCronScheduler creates a new cron-based pipeline scheduler
func NewPipelineCronScheduler(config PipelineCronSchedulerConfig, pipeline PipelineRunner, logger *zap.Logger) *PipelineCronScheduler {
	return &PipelineCronScheduler{
		config:   config,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Start launches the scheduling loop. Calling Start on a running scheduler
// is a no-op.
func (s *PipelineCronScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	next := s.nextAfter(time.Now())
	s.setNextRunAt(next)

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Pipeline cron scheduler started",
		zap.Int("cron_hour", s.config.CronHour),
		zap.Int("cron_minute", s.config.CronMinute),
		zap.Time("next_run_at", next),
	)
	return nil
}

// Stop cancels the loop and waits for it to drain, bounded by ctx.
func (s *PipelineCronScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Pipeline cron scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Pipeline cron scheduler stop timed out")
		return ctx.Err()
	}
}

// loop sleeps until the next scheduled time, runs the pipeline, and repeats.
func (s *PipelineCronScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	for {
		next := s.nextAfter(time.Now())
		s.setNextRunAt(next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.runPipeline(ctx)
		}
	}
}

// nextAfter returns the first scheduled run time strictly after now.
func (s *PipelineCronScheduler) nextAfter(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(),
		s.config.CronHour, s.config.CronMinute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s *PipelineCronScheduler) setNextRunAt(next time.Time) {
	s.mu.Lock()
	s.nextRunAt = &next
	s.mu.Unlock()
}

// runPipeline executes one pipeline run with the configured timeout. A run
// that is still in flight when the next slot arrives makes the new run a
// logged no-op rather than a concurrent second run.
func (s *PipelineCronScheduler) runPipeline(ctx context.Context) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		s.logger.Warn("Skipping scheduled pipeline run, previous run still in flight")
		return
	}
	s.inFlight = true
	startedAt := time.Now()
	s.lastRunAt = &startedAt
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	runCtx := ctx
	if s.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.config.RunTimeout)
		defer cancel()
	}

	s.logger.Info("Starting scheduled pipeline run")
	summary, err := s.pipeline.RunOnce(runCtx)
	if err != nil {
		s.logger.Error("Scheduled pipeline run failed", zap.Error(err))
		return
	}
	s.logger.Info("Scheduled pipeline run finished",
		zap.String("run_id", summary.RunID.String()),
		zap.Int64("records_updated", summary.RecordsUpdated),
		zap.Int("notifications_created", summary.NotificationsCreated),
	)
}

// GetStatus reports the scheduler state for the automation status endpoint.
func (s *PipelineCronScheduler) GetStatus() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]any{
		"enabled":       s.config.Enabled,
		"is_running":    s.running,
		"run_in_flight": s.inFlight,
		"cron_hour":     s.config.CronHour,
		"cron_minute":   s.config.CronMinute,
		"last_run_at":   s.lastRunAt,
		"next_run_at":   s.nextRunAt,
	}
}

// GetNextRunAt returns when the next scheduled run will occur
func (s *PipelineCronScheduler) GetNextRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunAt
}

// GetLastRunAt returns when the last run occurred
func (s *PipelineCronScheduler) GetLastRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunAt
}
