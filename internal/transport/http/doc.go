// Package http holds the HTTP handlers of the ejiview API. Handlers parse
// and validate the request, call the data or health service and render the
// result. They carry no domain logic.
//
// # Routes
//
//	GET  /api/health, /api/health/ready, /api/health/live, /api/version
//	GET  /api/catalog                         metric catalog and alias table
//	GET  /api/scale                           concern bands
//	GET  /api/sources                         loaded sources
//	GET  /api/sources/{source}/table          normalized table
//	GET  /api/sources/{source}/entities       entity keys (?all=true includes all-missing rows)
//	GET  /api/sources/{source}/entities/{key} one record (?match=normalized)
//	GET  /api/compare                         comparison from query parameters
//	POST /api/compare                         comparison from a JSON body
//	GET  /api/compare/export                  comparison as csv or xlsx
//	POST /api/reload                          reload every source (API key)
//	GET  /metrics, /metrics/websocket
//
// # Responses
//
// Successful responses are wrapped:
//
//	{"status": "success", "data": ..., "count": n}
//
// Failures are RFC 7807 problem documents rendered by the errors package.
// Service sentinels are mapped first:
//
//	services.ErrNoSources        503 NO_DATA
//	services.ErrSourceNotFound   404 SOURCE_NOT_FOUND
//	services.ErrEntityNotFound   404 ENTITY_NOT_FOUND
//	services.ErrInvalidInput     400 INVALID_PARAMETER
//	services.ErrReloadInProgress 409 RELOAD_IN_PROGRESS
//
// Normalization errors keep their schema problem types. A duplicate key
// under normalized matching answers 409.
package http
