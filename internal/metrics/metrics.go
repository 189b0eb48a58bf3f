package metrics

import (
	"sort"
	"sync"
	"time"
)

type Metrics struct {
	mutex         sync.RWMutex
	requests      map[string]int64
	notFound      map[string]int64
	deliveries    map[string]int64
	failures      map[string]int64
	responseTimes map[string][]time.Duration
	ewma          map[string]time.Duration
	statusCodes   map[string]map[int]int64
	healthStatus  map[string]bool
	startTime     time.Time
}

type Snapshot struct {
	TotalRequests   int64                    `json:"total_requests"`
	TotalDeliveries int64                    `json:"total_deliveries"`
	Uptime          time.Duration            `json:"uptime"`
	Routes          map[string]RouteMetrics  `json:"routes"`
	Targets         map[string]TargetMetrics `json:"targets"`
}

type RouteMetrics struct {
	Requests int64 `json:"requests"`
	NotFound int64 `json:"not_found"`
}

type TargetMetrics struct {
	Deliveries   int64         `json:"deliveries"`
	Failures     int64         `json:"failures"`
	Healthy      bool          `json:"healthy"`
	EWMAResponse time.Duration `json:"ewma_response"`
	P50Response  time.Duration `json:"p50_response"`
	P95Response  time.Duration `json:"p95_response"`
	P99Response  time.Duration `json:"p99_response"`
	StatusCodes  map[int]int64 `json:"status_codes"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests:      make(map[string]int64),
		notFound:      make(map[string]int64),
		deliveries:    make(map[string]int64),
		failures:      make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		ewma:          make(map[string]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		healthStatus:  make(map[string]bool),
		startTime:     time.Now(),
	}
}

func (m *Metrics) IncrementRequests(route string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests[route]++
}

func (m *Metrics) IncrementNotFound(route string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.notFound[route]++
}

func (m *Metrics) RecordDelivery(target string, duration time.Duration, statusCode int, success bool, ewma time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.deliveries[target]++
	if !success {
		m.failures[target]++
	}

	if ewma > 0 {
		m.ewma[target] = ewma
	}

	m.responseTimes[target] = append(m.responseTimes[target], duration)

	if len(m.responseTimes[target]) > 1000 {
		m.responseTimes[target] = m.responseTimes[target][1:]
	}

	// Transport failures carry no status code.
	if statusCode > 0 {
		if m.statusCodes[target] == nil {
			m.statusCodes[target] = make(map[int]int64)
		}
		m.statusCodes[target][statusCode]++
	}
}

func (m *Metrics) UpdateHealthStatus(target string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.healthStatus[target] = healthy
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:  time.Since(m.startTime),
		Routes:  make(map[string]RouteMetrics),
		Targets: make(map[string]TargetMetrics),
	}

	allRoutes := make(map[string]bool)
	for route := range m.requests {
		allRoutes[route] = true
	}
	for route := range m.notFound {
		allRoutes[route] = true
	}

	for route := range allRoutes {
		snap.TotalRequests += m.requests[route]
		snap.Routes[route] = RouteMetrics{
			Requests: m.requests[route],
			NotFound: m.notFound[route],
		}
	}

	allTargets := make(map[string]bool)
	for target := range m.deliveries {
		allTargets[target] = true
	}
	for target := range m.healthStatus {
		allTargets[target] = true
	}

	for target := range allTargets {
		snap.TotalDeliveries += m.deliveries[target]

		// Destinations start healthy; an absent entry means no transition
		// has been observed, not that the target is down.
		healthy, seen := m.healthStatus[target]
		if !seen {
			healthy = true
		}

		tm := TargetMetrics{
			Deliveries:   m.deliveries[target],
			Failures:     m.failures[target],
			Healthy:      healthy,
			EWMAResponse: m.ewma[target],
			StatusCodes:  m.statusCodes[target],
		}

		durations := m.responseTimes[target]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			tm.P50Response = percentile(sorted, 0.50)
			tm.P95Response = percentile(sorted, 0.95)
			tm.P99Response = percentile(sorted, 0.99)
		}

		snap.Targets[target] = tm
	}

	return snap
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
