package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

func TestNewTracerProviderDisabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, tp)

	assert.False(t, tp.IsEnabled())
	assert.False(t, tp.IsSpanProfilesEnabled())

	// Every lifecycle method degrades to a no-op
	assert.NoError(t, tp.Shutdown(context.Background()))
	assert.NoError(t, tp.ForceFlush(context.Background()))
	assert.NoError(t, tp.EnableSpanProfiles())
	assert.False(t, tp.IsSpanProfilesEnabled())
}

func TestDisabledTracerStillHandsOutTracers(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	tracer := tp.Tracer("ingestion")
	require.NotNil(t, tracer)

	_, span := tracer.Start(context.Background(), "parse_invoice")
	assert.NotNil(t, span)
	span.End()
}

func TestTracerProviderGetConfig(t *testing.T) {
	cfg := Config{
		Enabled:           false,
		CollectorEndpoint: "otel-collector:4317",
		SamplingRatio:     0.25,
		ServiceName:       "clinicware-backend",
		Insecure:          true,
	}
	tp, err := NewTracerProvider(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, cfg, tp.GetConfig())
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		ratio float64
		want  sdktrace.Sampler
	}{
		{1.0, sdktrace.AlwaysSample()},
		{0.0, sdktrace.NeverSample()},
		{0.5, sdktrace.TraceIDRatioBased(0.5)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want.Description(), samplerFor(tt.ratio).Description(), "ratio %v", tt.ratio)
	}
}
