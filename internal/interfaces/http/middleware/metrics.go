package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/clinicware/backend/internal/infrastructure/telemetry"
)

// HTTPMetricsConfig holds configuration for the HTTP metrics middleware
type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	Enabled       bool
}

var (
	requestSizeBuckets  = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000}
	responseSizeBuckets = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000, 5000000}
)

// httpMetrics bundles the server-side request instruments
type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
	requestSize     *telemetry.Histogram
	responseSize    *telemetry.Histogram
	activeRequests  metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requestTotal, err := telemetry.NewCounter(
		meter,
		"http_server_request_total",
		"Total number of HTTP requests",
		"{request}",
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency distribution in seconds",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	requestSize, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_size_bytes",
		Description: "HTTP request body size distribution in bytes",
		Unit:        "By",
		Boundaries:  requestSizeBuckets,
	})
	if err != nil {
		return nil, err
	}

	responseSize, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_response_size_bytes",
		Description: "HTTP response body size distribution in bytes",
		Unit:        "By",
		Boundaries:  responseSizeBuckets,
	})
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &httpMetrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestSize:     requestSize,
		responseSize:    responseSize,
		activeRequests:  activeRequests,
	}, nil
}

// HTTPMetrics records request count, latency, body sizes and in-flight
// requests for every route. Attributes use the route pattern rather
// than the raw path to keep series cardinality bounded.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.MeterProvider == nil || !cfg.MeterProvider.IsEnabled() {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("http.server"), true)
}

// HTTPMetricsWithMeter builds the metrics middleware on a caller
// supplied meter
func HTTPMetricsWithMeter(meter metric.Meter, enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	metrics, err := newHTTPMetrics(meter)
	if err != nil {
		// Instrument registration failing must never take requests down
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		requestSize := c.Request.ContentLength

		metrics.activeRequests.Add(ctx, 1)
		c.Next()
		metrics.activeRequests.Add(ctx, -1)

		metrics.record(ctx, requestSample{
			method:       c.Request.Method,
			route:        routePattern(c),
			statusCode:   c.Writer.Status(),
			tenantID:     traceTenantID(c),
			duration:     time.Since(start),
			requestSize:  requestSize,
			responseSize: c.Writer.Size(),
		})
	}
}

type requestSample struct {
	method       string
	route        string
	statusCode   int
	tenantID     string
	duration     time.Duration
	requestSize  int64
	responseSize int
}

func (m *httpMetrics) record(ctx context.Context, s requestSample) {
	countAttrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(s.method),
		telemetry.AttrHTTPRoute.String(s.route),
		telemetry.AttrHTTPStatusCode.Int(s.statusCode),
	}
	if s.tenantID != "" {
		countAttrs = append(countAttrs, telemetry.AttrTenantID.String(s.tenantID))
	}
	m.requestTotal.Inc(ctx, countAttrs...)

	// Histograms carry only method and route to keep series count down
	sizeAttrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(s.method),
		telemetry.AttrHTTPRoute.String(s.route),
	}
	m.requestDuration.RecordDuration(ctx, s.duration, sizeAttrs...)
	if s.requestSize > 0 {
		m.requestSize.Record(ctx, float64(s.requestSize), sizeAttrs...)
	}
	if s.responseSize > 0 {
		m.responseSize.Record(ctx, float64(s.responseSize), sizeAttrs...)
	}
}

// routePattern falls back to "unknown" for unmatched routes so 404
// noise cannot explode the route label
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}
