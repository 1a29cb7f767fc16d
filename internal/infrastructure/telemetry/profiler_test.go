package telemetry

import (
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewProfilerDisabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	// Stop stays idempotent
	assert.NoError(t, p.Stop())
}

func TestNewProfilerValidation(t *testing.T) {
	t.Run("missing server address", func(t *testing.T) {
		_, err := NewProfiler(ProfilerConfig{
			Enabled:         true,
			ApplicationName: "clinicware-backend",
		}, zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server address")
	})

	t.Run("missing application name", func(t *testing.T) {
		_, err := NewProfiler(ProfilerConfig{
			Enabled:       true,
			ServerAddress: "http://pyroscope:4040",
		}, zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "application name")
	})
}

func TestProfilerGetConfig(t *testing.T) {
	cfg := ProfilerConfig{
		Enabled:         false,
		ServerAddress:   "http://pyroscope:4040",
		ApplicationName: "clinicware-backend",
		ProfileCPU:      true,
	}
	p, err := NewProfiler(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, cfg, p.GetConfig())
}

func TestProfileTypes(t *testing.T) {
	t.Run("none enabled", func(t *testing.T) {
		assert.Empty(t, ProfilerConfig{}.profileTypes())
	})

	t.Run("cpu and heap", func(t *testing.T) {
		types := ProfilerConfig{
			ProfileCPU:        true,
			ProfileAllocSpace: true,
			ProfileInuseSpace: true,
		}.profileTypes()
		assert.Equal(t, []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseSpace,
		}, types)
	})

	t.Run("all enabled", func(t *testing.T) {
		types := ProfilerConfig{
			ProfileCPU:           true,
			ProfileAllocObjects:  true,
			ProfileAllocSpace:    true,
			ProfileInuseObjects:  true,
			ProfileInuseSpace:    true,
			ProfileGoroutines:    true,
			ProfileMutexCount:    true,
			ProfileMutexDuration: true,
			ProfileBlockCount:    true,
			ProfileBlockDuration: true,
		}.profileTypes()
		assert.Len(t, types, 10)
	})
}

func TestPyroscopeLoggerAdapter(t *testing.T) {
	adapter := newPyroscopeLogger(zap.NewNop())
	require.NotNil(t, adapter)

	assert.NotPanics(t, func() {
		adapter.Infof("upload %s", "ok")
		adapter.Debugf("detail %d", 1)
		adapter.Errorf("failed: %v", "boom")
	})
}
