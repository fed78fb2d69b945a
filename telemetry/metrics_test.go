package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestMetrics_RecordRefreshAndDecision(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewMetrics(provider.Meter(meterName))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordRefresh(ctx, "succeeded", true, 35, 12*time.Millisecond)
	m.RecordRefresh(ctx, "fetch_failed", false, 0, time.Millisecond)
	m.RecordDecision(ctx, "EDIT_ENTITY", "ALLOW")
	m.RecordInvalidation(ctx, "api")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := map[string]metricdata.Metrics{}
	for _, metric := range rm.ScopeMetrics[0].Metrics {
		names[metric.Name] = metric
	}

	cycles, ok := names["authz.policy_cache.refresh.cycles"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, cycles.DataPoints, 2)

	gauge, ok := names["authz.policy_cache.policies"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(35), gauge.DataPoints[0].Value)

	assert.Contains(t, names, "authz.decisions")
	assert.Contains(t, names, "authz.policy_cache.invalidations")
}

func TestDefault_IsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}
