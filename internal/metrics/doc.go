// Package metrics provides real-time metrics collection for the forwarder.
//
// It uses a channel-based event pipeline to asynchronously collect metrics about:
//   - Inbound request counts and routing misses per webhook identifier
//   - Delivery and failure counts per destination
//   - Delivery times with percentile calculations (P50, P95, P99)
//   - HTTP status code distribution per destination
//   - Destination health tracking from the background probe
//
// The collector runs in a dedicated goroutine and processes events without blocking
// the request path. Events are sent via buffered channels with non-blocking semantics
// to prevent performance degradation under load.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
package metrics
