// Fanouttest is a concurrent exerciser for the webhook forwarder. It sends
// repeated requests to a /webhook/<id> endpoint, parses the aggregate JSON
// responses, and reports outcome distribution and latency percentiles.
//
// Usage:
//
//	go run ./scripts/fanouttest -url http://localhost:8080/webhook/orders -concurrency 10 -requests 1000
//	go run ./scripts/fanouttest -url http://localhost:8080/webhook/orders/extra/path -requests 500 -v
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type aggregate struct {
	ID           string `json:"id"`
	TotalTargets int    `json:"totalTargets"`
	Successful   int    `json:"successful"`
	Failed       int    `json:"failed"`
}

func main() {
	var (
		url         = flag.String("url", "http://localhost:8080/webhook/orders", "Webhook URL to exercise")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 100, "Total number of requests to send")
		body        = flag.String("body", `{"event":"test","payload":{"n":1}}`, "Request body")
		timeoutSec  = flag.Int("timeout", 60, "Per-request timeout in seconds")
		verbose     = flag.Bool("v", false, "Verbose per-request logging to stdout")
	)
	flag.Parse()

	client := &http.Client{Timeout: time.Duration(*timeoutSec) * time.Second}

	jobs := make(chan int)
	var wg sync.WaitGroup

	var total, transportErrors int32

	statusCodes := make(map[int]int32)
	var statusMu sync.Mutex

	var legsTotal, legsFailed int64

	var allLatencies []time.Duration
	var latMu sync.Mutex

	testStart := time.Now()

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobs {
				atomic.AddInt32(&total, 1)
				start := time.Now()

				req, err := http.NewRequest(http.MethodPost, *url, bytes.NewBufferString(*body))
				if err != nil {
					atomic.AddInt32(&transportErrors, 1)
					continue
				}
				req.Header.Set("Content-Type", "application/json")

				resp, err := client.Do(req)
				dur := time.Since(start)

				latMu.Lock()
				allLatencies = append(allLatencies, dur)
				latMu.Unlock()

				if err != nil {
					atomic.AddInt32(&transportErrors, 1)
					if *verbose {
						fmt.Printf("[%d] idx=%d error=%v\n", workerID, idx, err)
					}
					continue
				}

				statusMu.Lock()
				statusCodes[resp.StatusCode]++
				statusMu.Unlock()

				var agg aggregate
				payload, _ := io.ReadAll(resp.Body)
				resp.Body.Close()

				if err := json.Unmarshal(payload, &agg); err == nil {
					atomic.AddInt64(&legsTotal, int64(agg.TotalTargets))
					atomic.AddInt64(&legsFailed, int64(agg.Failed))
				}

				if *verbose {
					fmt.Printf("[%d] idx=%d status=%d targets=%d failed=%d dur=%v\n",
						workerID, idx, resp.StatusCode, agg.TotalTargets, agg.Failed, dur)
				}
			}
		}(i)
	}

	go func() {
		for i := 0; i < *requests; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	wg.Wait()
	elapsed := time.Since(testStart)

	sort.Slice(allLatencies, func(i, j int) bool { return allLatencies[i] < allLatencies[j] })

	fmt.Printf("\nrequests:   %d in %v (%.1f req/s)\n", total, elapsed.Round(time.Millisecond), float64(total)/elapsed.Seconds())
	fmt.Printf("transport errors: %d\n", transportErrors)

	fmt.Println("status codes:")
	codes := make([]int, 0, len(statusCodes))
	for code := range statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, statusCodes[code])
	}

	fmt.Printf("delivery legs: %d total, %d failed\n", legsTotal, legsFailed)

	if len(allLatencies) > 0 {
		fmt.Printf("latency: p50=%v p90=%v p95=%v p99=%v max=%v\n",
			pct(allLatencies, 0.50), pct(allLatencies, 0.90),
			pct(allLatencies, 0.95), pct(allLatencies, 0.99),
			allLatencies[len(allLatencies)-1])
	}

	if transportErrors > 0 {
		os.Exit(1)
	}
}

func pct(sorted []time.Duration, p float64) time.Duration {
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
