package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relayforge/webhook-forwarder/config"
	"github.com/relayforge/webhook-forwarder/internal/forwarder"
	"github.com/relayforge/webhook-forwarder/internal/handler"
	"github.com/relayforge/webhook-forwarder/internal/healthcheck"
	"github.com/relayforge/webhook-forwarder/internal/httpserver"
	"github.com/relayforge/webhook-forwarder/internal/metrics"
	"github.com/relayforge/webhook-forwarder/internal/routing"
	"github.com/relayforge/webhook-forwarder/pkg/logger"
)

const metricsBufferSize = 1000

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	table := buildRoutingTable(cfg, log)
	if table.Len() == 0 {
		log.Warn("No webhook routes configured; every dispatch will return 404")
	} else {
		log.Info("Routing table loaded",
			slog.Int("routes", table.Len()),
			slog.Any("ids", table.Routes()))
	}

	collector := metrics.NewCollector(metricsBufferSize, log)
	collector.Start(ctx)
	seedHealthMetrics(table, collector)

	startHealthProbes(ctx, cfg, table, log, collector)

	fwd := forwarder.New(log, cfg.ForwardTimeout())
	fwdHandler := handler.NewForwarderHandler(log, table, fwd, collector, cfg.Forward.ExposeConfig)

	mux := setupRouter(fwdHandler, collector)

	// The aggregate response cannot be written until the slowest delivery
	// finishes, so the write timeout must outlast the per-delivery timeout.
	srv, err := httpserver.New(cfg.Server.Address, mux,
		httpserver.WithTimeouts(15*time.Second, cfg.ForwardTimeout()+15*time.Second, 60*time.Second))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("Starting webhook forwarder", slog.String("addr", cfg.Server.Address))

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting webhook forwarder", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// buildRoutingTable snapshots the environment once and freezes the resolved
// routes into an immutable table for the process lifetime.
func buildRoutingTable(cfg *config.Config, log *slog.Logger) *routing.Table {
	resolved := config.ResolveRoutes(cfg, os.Environ(), log)
	return routing.NewTable(resolved, log)
}

// seedHealthMetrics publishes the boot-time health state of every configured
// destination, so the snapshot lists all targets before any traffic arrives
// or a probe observes a transition.
func seedHealthMetrics(table *routing.Table, collector *metrics.Collector) {
	for _, dest := range table.Destinations() {
		select {
		case collector.EventChannel() <- metrics.MetricEvent{
			Type:      metrics.EventHealthChanged,
			Timestamp: time.Now(),
			Target:    dest.String(),
			Healthy:   dest.IsHealthy(),
		}:
		default:
		}
	}
}

// startHealthProbes launches one background probe per destination when
// probing is enabled.
func startHealthProbes(ctx context.Context, cfg *config.Config, table *routing.Table, log *slog.Logger, collector *metrics.Collector) {
	interval := cfg.HealthCheckInterval()
	if interval <= 0 {
		return
	}

	for _, dest := range table.Destinations() {
		go healthcheck.Probe(ctx, dest, interval, log, collector)
	}

	log.Info("Health probes started",
		slog.Int("targets", len(table.Destinations())),
		slog.Duration("interval", interval))
}
