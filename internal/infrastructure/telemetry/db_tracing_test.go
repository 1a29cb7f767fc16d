package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedSupplier struct {
	ID   uint `gorm:"primarykey"`
	Name string
}

func openTracedDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedSupplier{}))
	return db
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
}

func TestRegisterOperationCallbacks(t *testing.T) {
	db := openTracedDB(t)

	fn := func(*gorm.DB) {}
	require.NoError(t, registerOperationCallbacks(db, "timing_before", true, fn))
	require.NoError(t, registerOperationCallbacks(db, "timing_after", false, fn))

	cb := db.Callback()
	assert.NotNil(t, cb.Create().Get("timing_before:create"))
	assert.NotNil(t, cb.Query().Get("timing_before:query"))
	assert.NotNil(t, cb.Update().Get("timing_before:update"))
	assert.NotNil(t, cb.Delete().Get("timing_before:delete"))
	assert.NotNil(t, cb.Row().Get("timing_before:row"))
	assert.NotNil(t, cb.Raw().Get("timing_before:raw"))
	assert.NotNil(t, cb.Create().Get("timing_after:create"))
	assert.NotNil(t, cb.Raw().Get("timing_after:raw"))
}

func TestRegisterOtelGormDisabled(t *testing.T) {
	db := openTracedDB(t)
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: false}, zap.NewNop())

	require.NoError(t, plugin.RegisterOtelGorm(db))

	// No callbacks installed, queries still work
	require.NoError(t, db.Create(&tracedSupplier{Name: "MedSupply"}).Error)
	assert.Nil(t, db.Callback().Query().Get("otel_slow_query:query"))
}

func TestRegisterOtelGormEnabled(t *testing.T) {
	recorder := withSpanRecorder(t)
	db := openTracedDB(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	plugin := NewDBTracingPlugin(cfg, zap.NewNop())
	require.NoError(t, plugin.RegisterOtelGorm(db))

	ctx, span := StartSpan(context.Background(), "purchase.receive")
	var suppliers []tracedSupplier
	require.NoError(t, db.WithContext(ctx).Create(&tracedSupplier{Name: "MedSupply"}).Error)
	require.NoError(t, db.WithContext(ctx).Find(&suppliers).Error)
	span.End()

	var names []string
	for _, ended := range recorder.Ended() {
		names = append(names, ended.Name())
	}
	assert.NotEmpty(t, names, "otelgorm should record query spans")
}

func TestAnnotateSpanMarksSlowQueries(t *testing.T) {
	recorder := withSpanRecorder(t)
	db := openTracedDB(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.SlowQueryThresh = time.Nanosecond
	plugin := NewDBTracingPlugin(cfg, zap.NewNop())
	require.NoError(t, plugin.RegisterOtelGorm(db))

	ctx, span := StartSpan(context.Background(), "slow.parent")
	require.NoError(t, db.WithContext(ctx).Create(&tracedSupplier{Name: "PharmaDirect"}).Error)
	span.End()

	var slowMarked bool
	for _, ended := range recorder.Ended() {
		for _, attr := range ended.Attributes() {
			if attr.Key == attribute.Key("db.slow_query") && attr.Value.AsBool() {
				slowMarked = true
			}
		}
	}
	assert.True(t, slowMarked, "query over the threshold should carry db.slow_query")
}

func TestAnnotateSpanIgnoresRecordNotFound(t *testing.T) {
	recorder := withSpanRecorder(t)
	db := openTracedDB(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	plugin := NewDBTracingPlugin(cfg, zap.NewNop())
	require.NoError(t, plugin.RegisterOtelGorm(db))

	ctx, span := StartSpan(context.Background(), "lookup.parent")
	var supplier tracedSupplier
	err := db.WithContext(ctx).First(&supplier, "name = ?", "missing").Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	span.End()

	for _, ended := range recorder.Ended() {
		assert.Empty(t, ended.Events(), "ErrRecordNotFound must not be recorded as an error event on %s", ended.Name())
	}
}

func TestWithQueryStartTime(t *testing.T) {
	ctx := WithQueryStartTime(context.Background())

	start, ok := ctx.Value(queryStartTimeKey).(time.Time)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), start, time.Second)
}
