package handler

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/relayforge/webhook-forwarder/internal/forwarder"
	"github.com/relayforge/webhook-forwarder/internal/metrics"
	"github.com/relayforge/webhook-forwarder/internal/routing"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "webhook-forwarder"

// endpoints listed in the fallback 404 body.
var endpoints = []string{"/", "/health", "/config", "/metrics", "/webhook/:id"}

type ForwarderHandler struct {
	logger           *slog.Logger
	table            *routing.Table
	forwarder        *forwarder.Forwarder
	metricsCollector *metrics.Collector
	exposeConfig     bool
}

func NewForwarderHandler(logger *slog.Logger, table *routing.Table, fwd *forwarder.Forwarder, collector *metrics.Collector, exposeConfig bool) *ForwarderHandler {
	return &ForwarderHandler{
		logger:           logger,
		table:            table,
		forwarder:        fwd,
		metricsCollector: collector,
		exposeConfig:     exposeConfig,
	}
}

// Webhook handles /webhook/<id>[/<subpath...>] for any method.
func (h *ForwarderHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	clientIP := extractClientIP(r)

	id, subpath, ok := splitWebhookPath(r.URL.Path)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "missing webhook id",
		})
		return
	}

	h.logger.Info("Received webhook",
		slog.String("from", clientIP),
		slog.String("method", r.Method),
		slog.String("id", id),
		slog.String("subpath", subpath),
		slog.String("host", r.Host))

	targets, found := h.table.Lookup(id)
	if !found {
		h.logger.Warn("Unknown webhook id",
			slog.String("id", id),
			slog.String("client", clientIP))

		h.emitEvent(metrics.MetricEvent{
			Type:      metrics.EventRouteNotFound,
			Timestamp: time.Now(),
			Route:     id,
		})

		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":       "no targets configured for webhook id",
			"id":          id,
			"knownRoutes": h.table.Routes(),
		})
		return
	}

	captured, err := forwarder.Capture(r, subpath)
	if err != nil {
		h.logger.Error("Failed to read request body",
			slog.String("id", id),
			slog.String("error", err.Error()))

		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "failed to read request body",
			"id":    id,
		})
		return
	}

	h.emitEvent(metrics.MetricEvent{
		Type:      metrics.EventRequestReceived,
		Timestamp: time.Now(),
		Route:     id,
	})

	agg := h.forwarder.Dispatch(r.Context(), id, targets, captured)

	// Results are index-aligned with targets. Events are keyed by the base
	// destination URL so sub-path deliveries aggregate under one target.
	for i, attempt := range agg.Results {
		h.emitEvent(metrics.MetricEvent{
			Type:       metrics.EventDeliveryCompleted,
			Timestamp:  time.Now(),
			Target:     targets[i].String(),
			Duration:   attempt.Elapsed,
			EWMA:       targets[i].EWMATime(),
			StatusCode: attempt.Status,
			Success:    attempt.Success,
		})
	}

	writeJSON(w, agg.HTTPStatus(), agg)
}

// Health handles GET / and GET /health.
func (h *ForwarderHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": ServiceName,
	})
}

// Config handles GET /config. The routing table is only exposed when the
// debug flag is set; otherwise the endpoint is indistinguishable from an
// unknown path. Query strings are stripped from destination URLs.
func (h *ForwarderHandler) Config(w http.ResponseWriter, r *http.Request) {
	if !h.exposeConfig {
		h.NotFound(w, r)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":  h.table.Len(),
		"routes": h.table.Redacted(),
	})
}

// NotFound is the fallback for unrecognized paths.
func (h *ForwarderHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":     "not found",
		"endpoints": endpoints,
	})
}

// splitWebhookPath extracts the identifier and the remaining sub-path from
// an inbound /webhook path. ok is false when the identifier segment is
// missing entirely (bare /webhook or /webhook/).
func splitWebhookPath(path string) (id, subpath string, ok bool) {
	rest := strings.TrimPrefix(path, "/webhook")
	rest = strings.TrimPrefix(rest, "/")

	if rest == "" {
		return "", "", false
	}

	if i := strings.Index(rest, "/"); i >= 0 {
		return rest[:i], rest[i:], true
	}

	return rest, "", true
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

func (h *ForwarderHandler) emitEvent(event metrics.MetricEvent) {
	if h.metricsCollector == nil {
		return
	}

	select {
	case h.metricsCollector.EventChannel() <- event:
	default:
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Headers are already out; nothing left to do for the client.
		return
	}
}
