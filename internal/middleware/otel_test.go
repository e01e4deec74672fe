package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"ejiview/internal/infrastructure"
)

func TestOTelMiddleware(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	defer tp.Shutdown(context.Background())

	metrics, err := infrastructure.CreateDomainMetrics(mp.Meter("test"))
	require.NoError(t, err)

	mw := NewOTelMiddleware(&infrastructure.OTelProviders{
		Tracer: tp.Tracer("test"),
		Logger: discardLogger(),
	}, metrics)

	r := chi.NewRouter()
	r.Use(mw.Handler)
	r.Get("/api/sources/{source}/entities/{key}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("{}"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sources/county/entities/Luna", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total metricdata.Sum[int64]
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "http_requests_total" {
				total = m.Data.(metricdata.Sum[int64])
			}
		}
	}
	require.Len(t, total.DataPoints, 1)
	dp := total.DataPoints[0]
	route, _ := dp.Attributes.Value(attribute.Key("route"))
	status, _ := dp.Attributes.Value(attribute.Key("status_code"))
	assert.Equal(t, "/api/sources/{source}/entities/{key}", route.AsString())
	assert.Equal(t, int64(http.StatusNotFound), status.AsInt64())

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "GET /api/sources/{source}/entities/{key}", ended[0].Name())
}

func TestOTelMiddleware_NoMetrics(t *testing.T) {
	mw := NewOTelMiddleware(&infrastructure.OTelProviders{}, nil)
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	})
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestResponseWriterCapturesBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	_, err := rw.Write([]byte("hello"))
	require.NoError(t, err)
	rw.Flush()

	assert.Equal(t, int64(5), rw.bytesWritten)
	assert.True(t, rec.Flushed)
	assert.Equal(t, rec, rw.Unwrap())

	_, _, err = rw.Hijack()
	assert.Error(t, err, "the recorder cannot be hijacked")
}
