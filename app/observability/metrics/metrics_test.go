package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestAppMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := New(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordAPIRequest(ctx, "/auth/login", 200, 30*time.Millisecond)
	m.RecordAPIRequest(ctx, "/auth/login", 401, 10*time.Millisecond)
	m.RecordLogin(ctx, "success")
	m.SessionOpened(ctx)
	m.SessionOpened(ctx)
	m.SessionClosed(ctx)

	got := collect(t, reader)

	requests, ok := got["api_client_requests_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range requests.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(2), total)
	assert.Len(t, requests.DataPoints, 2)

	sessions, ok := got["active_sessions"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sessions.DataPoints, 1)
	assert.Equal(t, int64(1), sessions.DataPoints[0].Value)

	_, ok = got["api_client_request_duration_seconds"].Data.(metricdata.Histogram[float64])
	assert.True(t, ok)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *AppMetrics
	assert.NotPanics(t, func() {
		ctx := context.Background()
		m.RecordAPIRequest(ctx, "/users", 500, time.Second)
		m.RecordLogin(ctx, "error")
		m.SessionOpened(ctx)
		m.SessionClosed(ctx)
	})
}
