package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// StatsProvider reports live counters, the websocket hub in production
type StatsProvider interface {
	Stats() map[string]interface{}
}

// MetricsHandler serves the Prometheus scrape endpoint and the websocket
// hub counters
type MetricsHandler struct {
	prometheus http.Handler
	hub        StatsProvider
}

// NewMetricsHandler creates a metrics handler. Either argument may be nil.
func NewMetricsHandler(prometheus http.Handler, hub StatsProvider) *MetricsHandler {
	return &MetricsHandler{prometheus: prometheus, hub: hub}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Prometheus)
	r.Get("/websocket", h.WebSocketStats)
	return r
}

// Prometheus handles GET /metrics
func (h *MetricsHandler) Prometheus(w http.ResponseWriter, r *http.Request) {
	if h.prometheus == nil {
		http.Error(w, "metrics disabled", http.StatusNotFound)
		return
	}
	h.prometheus.ServeHTTP(w, r)
}

// WebSocketStats handles GET /metrics/websocket
func (h *MetricsHandler) WebSocketStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{}
	if h.hub != nil {
		stats = h.hub.Stats()
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   stats,
	})
}
