// Package app wires the ejiview service together and runs it.
//
// NewApplication builds, in order: the logger, OpenTelemetry providers,
// domain metrics and the runtime collector, the source loader, the data
// service, the websocket hub, the health service and finally the chi
// router and HTTP server. Nothing is fetched until Start, which runs the
// initial reload before serving. A failed initial load is logged and the
// server still starts; /api/health/ready answers 503 until a reload
// succeeds.
//
// # Middleware
//
// /ws sits behind RequestID and RealIP only, since the upgrade needs the
// raw ResponseWriter. Everything else runs through OTel, StructuredLogger,
// Recoverer, SecurityHeaders, CORS and, when enabled, the rate limiter.
// /api adds a per-request timeout. POST /api/reload additionally requires
// an API key and is audit logged.
//
// # Shutdown
//
// Run blocks until SIGINT, SIGTERM or a server failure, then Stop drains
// the HTTP server, closes websocket clients, stops the runtime collector
// and flushes telemetry. The package never calls os.Exit.
package app
