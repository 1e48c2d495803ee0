package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the console's metric instruments. A nil *AppMetrics is
// valid and records nothing, which keeps tests and tools free of setup.
type AppMetrics struct {
	APIRequestsTotal       metric.Int64Counter
	APIRequestDurationSecs metric.Float64Histogram
	LoginsTotal            metric.Int64Counter
	ActiveSessions         metric.Int64UpDownCounter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// New creates every instrument on meter.
func New(meter metric.Meter) (*AppMetrics, error) {
	var err error
	m := &AppMetrics{}

	m.APIRequestsTotal, err = meter.Int64Counter(
		"api_client_requests_total",
		metric.WithDescription("Total number of requests sent to the user API"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating api_client_requests_total: %w", err)
	}

	m.APIRequestDurationSecs, err = meter.Float64Histogram(
		"api_client_request_duration_seconds",
		metric.WithDescription("Duration of requests sent to the user API in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating api_client_request_duration_seconds: %w", err)
	}

	m.LoginsTotal, err = meter.Int64Counter(
		"auth_logins_total",
		metric.WithDescription("Total number of console sign-in attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating auth_logins_total: %w", err)
	}

	m.ActiveSessions, err = meter.Int64UpDownCounter(
		"active_sessions",
		metric.WithDescription("Number of browser sessions held by the console"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating active_sessions: %w", err)
	}

	return m, nil
}

// InitAppMetrics creates the global instruments once, from the globally
// configured MeterProvider.
func InitAppMetrics(logger *slog.Logger) {
	once.Do(func() {
		m, err := New(otel.GetMeterProvider().Meter("AdminConsole"))
		if err != nil {
			logger.Error("Failed to initialize metrics instruments", slog.Any("error", err))
			return
		}
		logger.Info("Application metrics instruments initialized")
		appMetrics = m
	})
}

// Get returns the global instruments, or nil when InitAppMetrics has not run.
func Get() *AppMetrics {
	return appMetrics
}

func (m *AppMetrics) RecordAPIRequest(ctx context.Context, endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.Int("status", status),
	)
	m.APIRequestsTotal.Add(ctx, 1, attrs)
	m.APIRequestDurationSecs.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordLogin counts a sign-in attempt. outcome is "success", "invalid" or "error".
func (m *AppMetrics) RecordLogin(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.LoginsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *AppMetrics) SessionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, 1)
}

func (m *AppMetrics) SessionClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, -1)
}
