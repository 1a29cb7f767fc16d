// Package telemetry provides OpenTelemetry integration for distributed tracing.
package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL includes query variables in spans. Dev only, the
	// variables can carry patient and supplier data.
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBSystem        string
}

// DefaultDBTracingConfig returns the secure defaults, tracing off and
// query variables excluded
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:         false,
		LogFullSQL:      false,
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// DBTracingPlugin registers otelgorm on a GORM instance and layers slow
// query detection and error marking on top of the otelgorm spans
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a database tracing plugin
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// RegisterOtelGorm installs the otelgorm plugin plus the timing
// callbacks on db. A no-op when tracing is disabled.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.config.DBSystem),
	}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if err := registerOperationCallbacks(db, "otel_timing:before", true, markQueryStart); err != nil {
		return err
	}
	if err := registerOperationCallbacks(db, "otel_slow_query", false, p.annotateSpan); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

// registerOperationCallbacks installs fn on every GORM operation type,
// either before or after the built-in callback. GORM does not export
// its callback processor type, so each operation registers through its
// own closure.
func registerOperationCallbacks(db *gorm.DB, prefix string, before bool, fn func(*gorm.DB)) error {
	cb := db.Callback()
	operations := []struct {
		name     string
		register func(anchor, name string) error
	}{
		{"create", func(anchor, name string) error {
			if before {
				return cb.Create().Before(anchor).Register(name, fn)
			}
			return cb.Create().After(anchor).Register(name, fn)
		}},
		{"query", func(anchor, name string) error {
			if before {
				return cb.Query().Before(anchor).Register(name, fn)
			}
			return cb.Query().After(anchor).Register(name, fn)
		}},
		{"update", func(anchor, name string) error {
			if before {
				return cb.Update().Before(anchor).Register(name, fn)
			}
			return cb.Update().After(anchor).Register(name, fn)
		}},
		{"delete", func(anchor, name string) error {
			if before {
				return cb.Delete().Before(anchor).Register(name, fn)
			}
			return cb.Delete().After(anchor).Register(name, fn)
		}},
		{"row", func(anchor, name string) error {
			if before {
				return cb.Row().Before(anchor).Register(name, fn)
			}
			return cb.Row().After(anchor).Register(name, fn)
		}},
		{"raw", func(anchor, name string) error {
			if before {
				return cb.Raw().Before(anchor).Register(name, fn)
			}
			return cb.Raw().After(anchor).Register(name, fn)
		}},
	}

	for _, op := range operations {
		if err := op.register("gorm:"+op.name, prefix+":"+op.name); err != nil {
			return err
		}
	}
	return nil
}

// markQueryStart stamps the statement context so annotateSpan can
// compute the elapsed time
func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = WithQueryStartTime(db.Statement.Context)
	}
}

// annotateSpan runs after each operation and enriches the otelgorm span
// with row counts, table name, errors, and slow query events
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

	// ErrRecordNotFound is an expected outcome, not a failure
	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if startTime, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		elapsed := time.Since(startTime)
		if elapsed > p.config.SlowQueryThresh {
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

// WithQueryStartTime stamps the context with the current time for slow
// query detection
func WithQueryStartTime(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryStartTimeKey, time.Now())
}
