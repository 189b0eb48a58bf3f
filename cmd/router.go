package main

import (
	"net/http"

	"github.com/relayforge/webhook-forwarder/internal/handler"
	"github.com/relayforge/webhook-forwarder/internal/metrics"
)

func setupRouter(fwdHandler *handler.ForwarderHandler, collector *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", fwdHandler.Health)
	mux.HandleFunc("GET /health", fwdHandler.Health)
	mux.HandleFunc("GET /config", fwdHandler.Config)
	mux.HandleFunc("GET /metrics", collector.Handler())
	mux.HandleFunc("/webhook", fwdHandler.Webhook)
	mux.HandleFunc("/webhook/", fwdHandler.Webhook)
	mux.HandleFunc("/", fwdHandler.NotFound)

	return mux
}
