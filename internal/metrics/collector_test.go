package metrics_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/relayforge/webhook-forwarder/internal/metrics"
)

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		log       *slog.Logger
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError, // Suppress logs in tests
		}))
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, log)
	})

	AfterEach(func() {
		cancel()
		time.Sleep(10 * time.Millisecond) // Allow goroutine to finish
	})

	Describe("NewCollector", func() {
		It("should create a collector with specified buffer size", func() {
			c := metrics.NewCollector(500, log)
			Expect(c).NotTo(BeNil())
		})
	})

	Describe("Start and event processing", func() {
		It("should process EventRequestReceived", func() {
			collector.Start(ctx)

			collector.EventChannel() <- metrics.MetricEvent{
				Type:      metrics.EventRequestReceived,
				Timestamp: time.Now(),
				Route:     "orders",
			}

			Eventually(func() int64 {
				return collector.Snapshot().Routes["orders"].Requests
			}).Should(Equal(int64(1)))
		})

		It("should process EventRouteNotFound", func() {
			collector.Start(ctx)

			collector.EventChannel() <- metrics.MetricEvent{
				Type:      metrics.EventRouteNotFound,
				Timestamp: time.Now(),
				Route:     "ghost",
			}

			Eventually(func() int64 {
				return collector.Snapshot().Routes["ghost"].NotFound
			}).Should(Equal(int64(1)))
		})

		It("should process EventDeliveryCompleted", func() {
			collector.Start(ctx)

			collector.EventChannel() <- metrics.MetricEvent{
				Type:       metrics.EventDeliveryCompleted,
				Timestamp:  time.Now(),
				Target:     "http://a.test/hook",
				Duration:   25 * time.Millisecond,
				EWMA:       25 * time.Millisecond,
				StatusCode: 200,
				Success:    true,
			}

			Eventually(func() int64 {
				return collector.Snapshot().Targets["http://a.test/hook"].Deliveries
			}).Should(Equal(int64(1)))

			snap := collector.Snapshot()
			Expect(snap.Targets["http://a.test/hook"].EWMAResponse).To(Equal(25 * time.Millisecond))
		})

		It("should process EventHealthChanged", func() {
			collector.Start(ctx)

			collector.EventChannel() <- metrics.MetricEvent{
				Type:      metrics.EventHealthChanged,
				Timestamp: time.Now(),
				Target:    "http://a.test/hook",
				Healthy:   true,
			}

			Eventually(func() bool {
				return collector.Snapshot().Targets["http://a.test/hook"].Healthy
			}).Should(BeTrue())
		})

		It("should drain pending events on shutdown", func() {
			collector.Start(ctx)

			for i := 0; i < 10; i++ {
				collector.EventChannel() <- metrics.MetricEvent{
					Type:      metrics.EventRequestReceived,
					Timestamp: time.Now(),
					Route:     "orders",
				}
			}

			cancel()

			Eventually(func() int64 {
				return collector.Snapshot().Routes["orders"].Requests
			}).Should(Equal(int64(10)))
		})
	})

	Describe("Handler", func() {
		It("serves the snapshot as JSON", func() {
			collector.Start(ctx)

			collector.EventChannel() <- metrics.MetricEvent{
				Type:      metrics.EventRequestReceived,
				Timestamp: time.Now(),
				Route:     "orders",
			}

			Eventually(func() int64 {
				return collector.Snapshot().TotalRequests
			}).Should(Equal(int64(1)))

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			w := httptest.NewRecorder()

			collector.Handler()(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/json"))
			Expect(w.Body.String()).To(ContainSubstring(`"total_requests":1`))
		})
	})
})
