package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls the otelgorm registration. LogFullSQL keeps
// query parameters in span attributes and belongs to development setups
// only; production runs with WithoutQueryVariables.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBSystem        string
}

// DefaultDBTracingConfig returns the disabled baseline; cmd/server flips
// Enabled from the [telemetry] config section.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:         false,
		LogFullSQL:      false,
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// DBTracingPlugin registers otelgorm on a GORM DB and layers a callback
// that annotates query spans with rows affected, table name, errors and a
// slow-query event.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates the plugin; call RegisterOtelGorm to attach it
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// RegisterOtelGorm attaches otelgorm and the annotation callbacks to the
// DB instance. A disabled config is a no-op so callers never need to branch.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerAnnotationCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

// registerAnnotationCallbacks hooks every GORM operation type: a before
// callback stamps the start time, an after callback annotates the span
// otelgorm opened for the statement. GORM's callback builder types are
// unexported, so each registration is spelled out as a deferred step.
func (p *DBTracingPlugin) registerAnnotationCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	steps := []func() error{
		func() error {
			return cb.Create().Before("gorm:create").Register("otel_timing:before_create", stampQueryStart)
		},
		func() error {
			return cb.Create().After("gorm:create").Register("otel_annotate:after_create", p.annotateSpan)
		},
		func() error {
			return cb.Query().Before("gorm:query").Register("otel_timing:before_query", stampQueryStart)
		},
		func() error {
			return cb.Query().After("gorm:query").Register("otel_annotate:after_query", p.annotateSpan)
		},
		func() error {
			return cb.Update().Before("gorm:update").Register("otel_timing:before_update", stampQueryStart)
		},
		func() error {
			return cb.Update().After("gorm:update").Register("otel_annotate:after_update", p.annotateSpan)
		},
		func() error {
			return cb.Delete().Before("gorm:delete").Register("otel_timing:before_delete", stampQueryStart)
		},
		func() error {
			return cb.Delete().After("gorm:delete").Register("otel_annotate:after_delete", p.annotateSpan)
		},
		func() error {
			return cb.Row().Before("gorm:row").Register("otel_timing:before_row", stampQueryStart)
		},
		func() error {
			return cb.Row().After("gorm:row").Register("otel_annotate:after_row", p.annotateSpan)
		},
		func() error {
			return cb.Raw().Before("gorm:raw").Register("otel_timing:before_raw", stampQueryStart)
		},
		func() error {
			return cb.Raw().After("gorm:raw").Register("otel_annotate:after_raw", p.annotateSpan)
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func stampQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

// annotateSpan runs after each statement and decorates the active span.
// ErrRecordNotFound is an expected lookup outcome and never marks the span.
func (p *DBTracingPlugin) annotateSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if startTime, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		if elapsed := time.Since(startTime); elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
}

type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"
