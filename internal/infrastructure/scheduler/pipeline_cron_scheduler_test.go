package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agencydesk/backend/internal/application/automation"
)

func TestParseCronSchedule(t *testing.T) {
	tests := []struct {
		name       string
		expr       string
		wantHour   int
		wantMinute int
	}{
		{"default 2am", "0 2 * * *", 2, 0},
		{"3:30am", "30 3 * * *", 3, 30},
		{"midnight", "0 0 * * *", 0, 0},
		{"11pm", "0 23 * * *", 23, 0},
		{"empty string defaults", "", 2, 0},
		{"truncated expression defaults", "15", 2, 0},
		{"wildcard fields keep defaults", "* * * * *", 2, 0},
		{"extra whitespace", "  15   4   *   *   *  ", 4, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hour, minute, err := ParseCronSchedule(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHour, hour)
			assert.Equal(t, tt.wantMinute, minute)
		})
	}
}

func TestParseCronScheduleRejectsBadFields(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"minute out of range", "61 2 * * *"},
		{"hour out of range", "0 24 * * *"},
		{"non-numeric minute", "abc 2 * * *"},
		{"non-numeric hour", "0 noon * * *"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hour, minute, err := ParseCronSchedule(tt.expr)
			require.Error(t, err)
			// errors still hand back the safe default
			assert.Equal(t, 2, hour)
			assert.Equal(t, 0, minute)
		})
	}
}

func TestDefaultPipelineCronSchedulerConfig(t *testing.T) {
	cfg := DefaultPipelineCronSchedulerConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 2, cfg.CronHour)
	assert.Equal(t, 0, cfg.CronMinute)
	assert.Equal(t, 30*time.Minute, cfg.RunTimeout)
}

func TestNextAfter(t *testing.T) {
	cfg := DefaultPipelineCronSchedulerConfig()
	cfg.CronHour = 2
	cfg.CronMinute = 30
	s := &PipelineCronScheduler{config: cfg}

	t.Run("before today's slot schedules today", func(t *testing.T) {
		now := time.Date(2026, 1, 15, 1, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 1, 15, 2, 30, 0, 0, time.UTC), s.nextAfter(now))
	})

	t.Run("after today's slot rolls to tomorrow", func(t *testing.T) {
		now := time.Date(2026, 1, 15, 3, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 1, 16, 2, 30, 0, 0, time.UTC), s.nextAfter(now))
	})

	t.Run("exactly at the slot rolls to tomorrow", func(t *testing.T) {
		now := time.Date(2026, 1, 15, 2, 30, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 1, 16, 2, 30, 0, 0, time.UTC), s.nextAfter(now))
	})

	t.Run("month boundary", func(t *testing.T) {
		now := time.Date(2026, 1, 31, 5, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 2, 1, 2, 30, 0, 0, time.UTC), s.nextAfter(now))
	})
}

// fakeRunner records invocations of RunOnce
type fakeRunner struct {
	mu    sync.Mutex
	calls int
}

func (r *fakeRunner) RunOnce(context.Context) (*automation.RunSummary, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return &automation.RunSummary{Success: true, RunID: uuid.New()}, nil
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestPipelineCronSchedulerLifecycle(t *testing.T) {
	t.Run("start and stop are idempotent", func(t *testing.T) {
		s := NewPipelineCronScheduler(DefaultPipelineCronSchedulerConfig(), &fakeRunner{}, zap.NewNop())

		require.NoError(t, s.Start(context.Background()))
		require.NoError(t, s.Start(context.Background()))
		assert.NotNil(t, s.GetNextRunAt())

		require.NoError(t, s.Stop(context.Background()))
		require.NoError(t, s.Stop(context.Background()))
	})

	t.Run("run invokes the pipeline and stamps the last run time", func(t *testing.T) {
		runner := &fakeRunner{}
		s := NewPipelineCronScheduler(DefaultPipelineCronSchedulerConfig(), runner, zap.NewNop())

		s.runPipeline(context.Background())

		assert.Equal(t, 1, runner.callCount())
		assert.NotNil(t, s.GetLastRunAt())
	})
}
