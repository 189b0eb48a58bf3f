// Receiver is a simple test webhook destination used for forwarder testing.
// It logs everything it receives (method, scrubbed-or-not headers, body) and
// answers with a configurable status code so failing legs can be simulated.
//
// Usage:
//
//	go run ./scripts/receiver -port 8081
//	go run ./scripts/receiver -port 8082 -status 500
//
// A /health endpoint is provided for the forwarder's health probe.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
)

func main() {
	port := flag.Int("port", 8081, "port to listen on")
	status := flag.Int("status", 200, "status code to answer webhooks with")
	flag.Parse()

	mux := http.NewServeMux()

	// simple health endpoint used by the forwarder health probe
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		// log headers sorted for stable output when diffing runs
		names := make([]string, 0, len(r.Header))
		for name := range r.Header {
			names = append(names, name)
		}
		sort.Strings(names)

		var headers strings.Builder
		for _, name := range names {
			fmt.Fprintf(&headers, " %s=%s", name, strings.Join(r.Header[name], ","))
		}

		log.Printf("webhook: method=%s path=%s from=%s%s body=%s",
			r.Method, r.URL.Path, r.RemoteAddr, headers.String(), string(body))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(*status)
		fmt.Fprintf(w, `{"received":true,"status":%d}`, *status)
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("starting receiver on %s (answering %d)", addr, *status)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
