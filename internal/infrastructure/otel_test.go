package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"ejiview/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOTelInitialization(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.EnableTracing = true
	cfg.TraceExporter = "stdout"

	providers, err := InitializeOTel(cfg, discardLogger())
	require.NoError(t, err)

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelDisabled(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.EnableMetrics = false
	cfg.EnableTracing = false

	providers, err := InitializeOTel(cfg, discardLogger())
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.PrometheusHTTP)
	assert.NotNil(t, providers.Meter, "no-op meter keeps instruments usable")

	metrics, err := CreateDomainMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RecordReload(context.Background(), nil)

	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestOTelUnsupportedExporters(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.EnableTracing = true
	cfg.TraceExporter = "zipkin"
	_, err := InitializeOTel(cfg, discardLogger())
	assert.ErrorContains(t, err, "unsupported trace exporter")

	cfg = DefaultOTelConfig()
	cfg.MetricExporter = "statsd"
	_, err = InitializeOTel(cfg, discardLogger())
	assert.ErrorContains(t, err, "unsupported metric exporter")
}

func TestOTelConfigFrom(t *testing.T) {
	cfg := OTelConfigFrom(config.TelemetryConfig{
		ServiceName:    "eji-test",
		MetricsEnabled: false,
		TracingEnabled: true,
		Environment:    "staging",
	}, "1.2.3")

	assert.Equal(t, "eji-test", cfg.ServiceName)
	assert.Equal(t, "1.2.3", cfg.ServiceVersion)
	assert.Equal(t, "staging", cfg.Environment)
	assert.False(t, cfg.EnableMetrics)
	assert.True(t, cfg.EnableTracing)

	cfg = OTelConfigFrom(config.TelemetryConfig{}, "dev")
	assert.Equal(t, ServiceName, cfg.ServiceName)
}

func TestTraceCorrelation(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.EnableTracing = true
	cfg.EnableMetrics = false
	providers, err := InitializeOTel(cfg, discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := otel.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	assert.Equal(t, span.SpanContext().TraceID().String(), TraceIDFromContext(ctx))
	assert.Empty(t, TraceIDFromContext(context.Background()))

	assert.NotPanics(t, func() {
		SetSpanAttributes(ctx, map[string]interface{}{
			"source": "county", "rows": 33, "rows64": int64(33), "ratio": 0.5, "ok": true, "other": []int{1},
		})
		RecordError(ctx, assert.AnError)
		RecordError(ctx, nil)
		RecordError(context.Background(), assert.AnError)
	})
}
