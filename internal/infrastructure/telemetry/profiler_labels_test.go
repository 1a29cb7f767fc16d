package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labelsFromContext(ctx context.Context) map[string]string {
	labels := map[string]string{}
	pprof.ForLabels(ctx, func(key, value string) bool {
		labels[key] = value
		return true
	})
	return labels
}

func TestWithProfilingLabels(t *testing.T) {
	t.Run("labels visible inside fn", func(t *testing.T) {
		var seen map[string]string
		WithProfilingLabels(context.Background(), map[string]string{
			ProfilingLabelController: "PurchaseHandler",
			ProfilingLabelOperation:  "ReceivePurchase",
		}, func(c context.Context) {
			seen = labelsFromContext(c)
		})

		assert.Equal(t, "PurchaseHandler", seen[ProfilingLabelController])
		assert.Equal(t, "ReceivePurchase", seen[ProfilingLabelOperation])
	})

	t.Run("empty labels still runs fn", func(t *testing.T) {
		called := false
		WithProfilingLabels(context.Background(), nil, func(c context.Context) {
			called = true
		})
		assert.True(t, called)
	})

	t.Run("all labels filtered still runs fn", func(t *testing.T) {
		called := false
		WithProfilingLabels(context.Background(), map[string]string{
			"user_id": "u-1",
		}, func(c context.Context) {
			called = true
			assert.Empty(t, labelsFromContext(c)["user_id"])
		})
		assert.True(t, called)
	})

	t.Run("caller may mutate map afterwards", func(t *testing.T) {
		labels := map[string]string{ProfilingLabelRoute: "/purchases"}
		WithProfilingLabels(context.Background(), labels, func(c context.Context) {})
		assert.NotPanics(t, func() { labels["extra"] = "x" })
	})
}

func TestSanitizeLabels(t *testing.T) {
	t.Run("sorted deterministic output", func(t *testing.T) {
		pairs := sanitizeLabels(map[string]string{
			"route":  "/invoices",
			"method": "POST",
		})
		assert.Equal(t, []string{"method", "POST", "route", "/invoices"}, pairs)
	})

	t.Run("drops high cardinality keys", func(t *testing.T) {
		pairs := sanitizeLabels(map[string]string{
			"user_id":    "u-1",
			"request_id": "r-1",
			"invoice_id": "inv-1",
			"tenant_id":  "t-1",
		})
		assert.Equal(t, []string{"tenant_id", "t-1"}, pairs)
	})

	t.Run("drops empty keys and values", func(t *testing.T) {
		pairs := sanitizeLabels(map[string]string{
			"":      "x",
			"route": "",
		})
		assert.Empty(t, pairs)
	})

	t.Run("truncates long values", func(t *testing.T) {
		long := strings.Repeat("a", MaxLabelValueLength+50)
		pairs := sanitizeLabels(map[string]string{"route": long})
		require.Len(t, pairs, 2)
		assert.Len(t, pairs[1], MaxLabelValueLength)
	})
}

func TestSanitizeLabelKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"route", "route"},
		{"Tenant ID", "tenant_id"},
		{"http-method", "http_method"},
		{"weird!@#key", "weirdkey"},
		{"UPPER", "upper"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeLabelKey(tt.in), "input %q", tt.in)
	}
}

func TestHTTPRequestLabels(t *testing.T) {
	labels := HTTPRequestLabels("PurchaseHandler", "/purchases/:id/receive", "POST", "t-1")
	assert.Equal(t, map[string]string{
		ProfilingLabelController: "PurchaseHandler",
		ProfilingLabelRoute:      "/purchases/:id/receive",
		ProfilingLabelMethod:     "POST",
		ProfilingLabelTenantID:   "t-1",
	}, labels)

	// Empty values are omitted
	labels = HTTPRequestLabels("", "/ledger/summary", "GET", "")
	assert.Equal(t, map[string]string{
		ProfilingLabelRoute:  "/ledger/summary",
		ProfilingLabelMethod: "GET",
	}, labels)
}

func TestOperationAndRegionLabels(t *testing.T) {
	labels := OperationLabels("pay_payable", map[string]string{"gateway": "cash"})
	assert.Equal(t, "pay_payable", labels[ProfilingLabelOperation])
	assert.Equal(t, "cash", labels["gateway"])

	labels = RegionLabels("db_query", nil)
	assert.Equal(t, map[string]string{ProfilingLabelRegion: "db_query"}, labels)
}
