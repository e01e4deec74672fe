package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DomainMetrics holds the application's instruments
type DomainMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Data metrics
	SourceFetchesTotal   metric.Int64Counter
	SourceFetchDuration  metric.Float64Histogram
	NormalizedRows       metric.Int64Gauge
	ExcludedRows         metric.Int64Gauge
	DroppedColumns       metric.Int64Gauge
	ReloadsTotal         metric.Int64Counter
	LookupsTotal         metric.Int64Counter
	ComparisonsTotal     metric.Int64Counter
	WebSocketConnections metric.Int64UpDownCounter
}

// CreateDomainMetrics creates every instrument on meter
func CreateDomainMetrics(meter metric.Meter) (*DomainMetrics, error) {
	m := &DomainMetrics{}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	); err != nil {
		return nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.SourceFetchesTotal, err = meter.Int64Counter(
		"eji_source_fetches_total",
		metric.WithDescription("Source fetch attempts by source and status"),
	); err != nil {
		return nil, err
	}
	if m.SourceFetchDuration, err = meter.Float64Histogram(
		"eji_source_fetch_duration_seconds",
		metric.WithDescription("Time to fetch and normalize one source"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.NormalizedRows, err = meter.Int64Gauge(
		"eji_normalized_rows",
		metric.WithDescription("Entity rows in the current table per source"),
	); err != nil {
		return nil, err
	}
	if m.ExcludedRows, err = meter.Int64Gauge(
		"eji_excluded_rows",
		metric.WithDescription("Summary or keyless rows excluded per source"),
	); err != nil {
		return nil, err
	}
	if m.DroppedColumns, err = meter.Int64Gauge(
		"eji_dropped_columns",
		metric.WithDescription("Columns that matched no metric per source"),
	); err != nil {
		return nil, err
	}
	if m.ReloadsTotal, err = meter.Int64Counter(
		"eji_reloads_total",
		metric.WithDescription("Repository reloads by status"),
	); err != nil {
		return nil, err
	}
	if m.LookupsTotal, err = meter.Int64Counter(
		"eji_lookups_total",
		metric.WithDescription("Entity lookups by source, match mode and result"),
	); err != nil {
		return nil, err
	}
	if m.ComparisonsTotal, err = meter.Int64Counter(
		"eji_comparisons_total",
		metric.WithDescription("Comparisons served"),
	); err != nil {
		return nil, err
	}
	if m.WebSocketConnections, err = meter.Int64UpDownCounter(
		"eji_websocket_connections",
		metric.WithDescription("Open websocket connections"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func status(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("status", "failure")
	}
	return attribute.String("status", "success")
}

// RecordSourceFetch records one fetch+normalize of source
func (m *DomainMetrics) RecordSourceFetch(ctx context.Context, source string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("source", source), status(err))
	m.SourceFetchesTotal.Add(ctx, 1, attrs)
	m.SourceFetchDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordTableShape records the size of a freshly normalized table
func (m *DomainMetrics) RecordTableShape(ctx context.Context, source string, rows, excluded, dropped int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("source", source))
	m.NormalizedRows.Record(ctx, int64(rows), attrs)
	m.ExcludedRows.Record(ctx, int64(excluded), attrs)
	m.DroppedColumns.Record(ctx, int64(dropped), attrs)
}

// RecordReload records a repository reload
func (m *DomainMetrics) RecordReload(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.ReloadsTotal.Add(ctx, 1, metric.WithAttributes(status(err)))
}

// RecordLookup records an entity lookup
func (m *DomainMetrics) RecordLookup(ctx context.Context, source, mode string, found bool) {
	if m == nil {
		return
	}
	m.LookupsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("match", mode),
		attribute.Bool("found", found),
	))
}

// RecordComparison records a served comparison
func (m *DomainMetrics) RecordComparison(ctx context.Context, metrics int) {
	if m == nil {
		return
	}
	m.ComparisonsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Int("metrics", metrics)))
}

// RecordWebSocketChange tracks websocket connection count
func (m *DomainMetrics) RecordWebSocketChange(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.WebSocketConnections.Add(ctx, delta)
}
