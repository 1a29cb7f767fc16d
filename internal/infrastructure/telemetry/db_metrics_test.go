package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type meteredProduct struct {
	ID   uint `gorm:"primarykey"`
	Code string
}

func openMeteredDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&meteredProduct{}))
	return db
}

func TestDefaultDBMetricsConfig(t *testing.T) {
	cfg := DefaultDBMetricsConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, cfg.PoolStatsInterval)
}

func TestNewDBMetricsDefaults(t *testing.T) {
	_, provider := newTestMeter(t)

	metrics, err := NewDBMetrics(provider.Meter("test"), DBMetricsConfig{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 200*time.Millisecond, metrics.config.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, metrics.config.PoolStatsInterval)
	assert.NotNil(t, metrics.logger)
}

func TestRecordQuery(t *testing.T) {
	reader, provider := newTestMeter(t)
	metrics, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordQuery(ctx, "select", "purchases", 5*time.Millisecond, nil)
	metrics.RecordQuery(ctx, "insert", "ledger_entries", 10*time.Millisecond, nil)
	metrics.RecordQuery(ctx, "", "payables", time.Millisecond, nil)

	m := collectedMetric(t, reader, "db_query_total")
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	totals := map[string]int64{}
	for _, dp := range sum.DataPoints {
		op, _ := dp.Attributes.Value(AttrDBOperation)
		totals[op.AsString()] = dp.Value
	}
	assert.Equal(t, int64(1), totals["SELECT"])
	assert.Equal(t, int64(1), totals["INSERT"])
	assert.Equal(t, int64(1), totals["UNKNOWN"])
}

func TestRecordQuerySlowThreshold(t *testing.T) {
	reader, provider := newTestMeter(t)

	cfg := DefaultDBMetricsConfig()
	cfg.SlowQueryThreshold = 10 * time.Millisecond
	metrics, err := NewDBMetrics(provider.Meter("test"), cfg, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordQuery(ctx, "SELECT", "purchases", 5*time.Millisecond, nil)
	metrics.RecordQuery(ctx, "SELECT", "purchases", 50*time.Millisecond, nil)
	metrics.RecordQuery(ctx, "SELECT", "", 60*time.Millisecond, nil)

	m := collectedMetric(t, reader, "db_slow_query_total")
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	totals := map[string]int64{}
	for _, dp := range sum.DataPoints {
		table, _ := dp.Attributes.Value(AttrDBTable)
		totals[table.AsString()] = dp.Value
	}
	assert.Equal(t, int64(1), totals["purchases"])
	assert.Equal(t, int64(1), totals["unknown"])
}

func TestDetectOperationType(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{"SELECT * FROM purchases", "SELECT"},
		{"  select 1", "SELECT"},
		{"INSERT INTO payables VALUES (1)", "INSERT"},
		{"update payables set status = 'SETTLED'", "UPDATE"},
		{"DELETE FROM stock_batches", "DELETE"},
		{"PRAGMA foreign_keys", "OTHER"},
		{"", "OTHER"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, detectOperationType(tt.sql), "sql %q", tt.sql)
	}
}

func TestDBMetricsPluginRecordsQueries(t *testing.T) {
	reader, provider := newTestMeter(t)
	metrics, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	db := openMeteredDB(t)
	plugin := NewDBMetricsPlugin(metrics, zap.NewNop())
	assert.Equal(t, "db_metrics", plugin.Name())
	require.NoError(t, db.Use(plugin))

	require.NoError(t, db.Create(&meteredProduct{Code: "AMOX-500"}).Error)
	var products []meteredProduct
	require.NoError(t, db.Find(&products).Error)

	m := collectedMetric(t, reader, "db_query_total")
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	totals := map[string]int64{}
	for _, dp := range sum.DataPoints {
		op, _ := dp.Attributes.Value(AttrDBOperation)
		totals[op.AsString()] += dp.Value
	}
	assert.GreaterOrEqual(t, totals["INSERT"], int64(1))
	assert.GreaterOrEqual(t, totals["SELECT"], int64(1))
}

func TestPoolStatsCollection(t *testing.T) {
	reader, provider := newTestMeter(t)
	metrics, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	db := openMeteredDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	metrics.SetSQLDB(sqlDB)

	metrics.collectPoolStats(context.Background())

	m := collectedMetric(t, reader, "db_pool_connections")
	gauge, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok)

	states := map[string]bool{}
	for _, dp := range gauge.DataPoints {
		state, _ := dp.Attributes.Value(AttrDBState)
		states[state.AsString()] = true
	}
	assert.True(t, states["idle"])
	assert.True(t, states["in_use"])
	assert.True(t, states["open"])
}

func TestStartPoolStatsCollectionWithoutDB(t *testing.T) {
	_, provider := newTestMeter(t)
	metrics, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	// Without a sql.DB the collector refuses to start and Stop is safe
	metrics.StartPoolStatsCollection(context.Background())
	metrics.Stop()
	metrics.Stop()
}

func TestRegisterDBMetricsSkipPaths(t *testing.T) {
	db := openMeteredDB(t)

	t.Run("disabled config", func(t *testing.T) {
		metrics, err := RegisterDBMetrics(db, nil, DBMetricsConfig{Enabled: false}, zap.NewNop())
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("disabled meter provider", func(t *testing.T) {
		mp, err := NewMeterProvider(context.Background(), MetricsConfig{Enabled: false}, zap.NewNop())
		require.NoError(t, err)

		metrics, err := RegisterDBMetrics(db, mp, DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})
}
