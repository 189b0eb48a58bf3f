package healthcheck

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/relayforge/webhook-forwarder/internal/destination"
	"github.com/relayforge/webhook-forwarder/internal/metrics"
)

// Probe periodically checks if a destination is reachable by sending
// HTTP GET requests to its /health endpoint. The destination's health status
// is updated based on the response, and transitions are reported to the
// metrics collector.
func Probe(
	ctx context.Context,
	dest *destination.Destination,
	interval time.Duration,
	logger *slog.Logger,
	collector *metrics.Collector,
) {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Health probe stopped",
				slog.String("target", dest.String()))
			return

		case <-ticker.C:
			healthURL := dest.URL().ResolveReference(&url.URL{Path: "/health"})

			req, err := http.NewRequestWithContext(
				ctx, http.MethodGet, healthURL.String(), nil)
			if err != nil {
				continue
			}

			res, err := client.Do(req)
			if err != nil {
				if dest.SetHealthy(false) {
					logger.Warn("Target is down",
						slog.String("target", dest.String()),
						slog.String("error", err.Error()))
					emitHealthChanged(collector, dest.String(), false)
				}
				continue
			}
			res.Body.Close()

			healthy := res.StatusCode == http.StatusOK
			changed := dest.SetHealthy(healthy)

			if changed {
				if healthy {
					logger.Info("Target is back up",
						slog.String("target", dest.String()))
				} else {
					logger.Warn("Target is down",
						slog.String("target", dest.String()))
				}
				emitHealthChanged(collector, dest.String(), healthy)
			}
		}
	}
}

func emitHealthChanged(collector *metrics.Collector, target string, healthy bool) {
	if collector == nil {
		return
	}

	select {
	case collector.EventChannel() <- metrics.MetricEvent{
		Type:      metrics.EventHealthChanged,
		Timestamp: time.Now(),
		Target:    target,
		Healthy:   healthy,
	}:
	default:
	}
}
