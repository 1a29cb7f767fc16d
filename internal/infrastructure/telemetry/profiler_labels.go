// Package telemetry provides Pyroscope continuous profiling integration.
package telemetry

import (
	"context"
	"maps"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys. Values for these keys must stay low cardinality,
// Pyroscope indexes every distinct value.
const (
	ProfilingLabelController = "controller"
	ProfilingLabelRoute      = "route"
	ProfilingLabelMethod     = "method"
	ProfilingLabelTenantID   = "tenant_id"
	ProfilingLabelOperation  = "operation"
	ProfilingLabelRegion     = "region"
)

// MaxLabelValueLength caps label values before they reach Pyroscope
const MaxLabelValueLength = 128

// highCardinalityLabels are dropped by sanitizeLabels. A per-request or
// per-entity ID as a label value would make Pyroscope index one series
// per value.
var highCardinalityLabels = map[string]bool{
	"user_id":    true,
	"request_id": true,
	"invoice_id": true,
	"trace_id":   true,
	"span_id":    true,
	"session_id": true,
}

// WithProfilingLabels runs fn with the given pprof labels attached, so
// profiling data can be sliced by them in the Pyroscope UI. The labels
// map is copied before use and may be modified afterwards.
//
//	telemetry.WithProfilingLabels(ctx, map[string]string{
//	    "controller": "PurchaseHandler",
//	    "operation":  "ReceivePurchase",
//	}, func(c context.Context) {
//	    receive(c)
//	})
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	if len(labels) == 0 {
		fn(ctx)
		return
	}

	labelsCopy := make(map[string]string, len(labels))
	maps.Copy(labelsCopy, labels)

	pairs := sanitizeLabels(labelsCopy)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}

	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// HTTPRequestLabels builds the standard label set for HTTP request
// profiling. Empty values are omitted.
func HTTPRequestLabels(controller, route, method, tenantID string) map[string]string {
	labels := make(map[string]string, 4)
	for key, value := range map[string]string{
		ProfilingLabelController: controller,
		ProfilingLabelRoute:      route,
		ProfilingLabelMethod:     method,
		ProfilingLabelTenantID:   tenantID,
	} {
		if value != "" {
			labels[key] = value
		}
	}
	return labels
}

// OperationLabels builds labels for a named business operation
func OperationLabels(operation string, extraLabels map[string]string) map[string]string {
	labels := make(map[string]string, len(extraLabels)+1)
	labels[ProfilingLabelOperation] = operation
	maps.Copy(labels, extraLabels)
	return labels
}

// RegionLabels builds labels for a code region such as a database call
// or an external API round trip
func RegionLabels(region string, extraLabels map[string]string) map[string]string {
	labels := make(map[string]string, len(extraLabels)+1)
	labels[ProfilingLabelRegion] = region
	maps.Copy(labels, extraLabels)
	return labels
}

// sanitizeLabels turns the map into the flat key, value slice Pyroscope
// expects. High-cardinality keys and empty pairs are dropped, long
// values truncated, and keys sorted so the output is deterministic.
func sanitizeLabels(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range keys {
		value := labels[key]
		if key == "" || value == "" || highCardinalityLabels[key] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		if sanitized := sanitizeLabelKey(key); sanitized != "" {
			pairs = append(pairs, sanitized, value)
		}
	}
	return pairs
}

// sanitizeLabelKey normalizes a key to snake_case ascii
func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	result := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_':
			result = append(result, c)
		case c == ' ' || c == '-':
			result = append(result, '_')
		}
	}
	return string(result)
}
