package config_test

import (
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/relayforge/webhook-forwarder/config"
)

var _ = Describe("ResolveRoutes", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	})

	resolve := func(cfg *config.Config, environ []string) map[string][]string {
		return config.ResolveRoutes(cfg, environ, log)
	}

	Context("file routes", func() {
		It("carries over sanitized file entries", func() {
			cfg := &config.Config{Routes: map[string][]string{
				"orders": {" http://a.test/hook ", "", "http://b.test/hook"},
			}}

			routes := resolve(cfg, nil)
			Expect(routes["orders"]).To(Equal([]string{"http://a.test/hook", "http://b.test/hook"}))
		})

		It("drops identifiers whose destinations all sanitize away", func() {
			cfg := &config.Config{Routes: map[string][]string{
				"orders": {"", "   "},
			}}

			routes := resolve(cfg, nil)
			Expect(routes).NotTo(HaveKey("orders"))
		})
	})

	Context("per-key env entries", func() {
		It("parses prefixed keys into lowercased identifiers", func() {
			environ := []string{
				"WEBHOOK_ORDERS=http://a.test/hook, http://b.test/hook ,",
				"PATH=/usr/bin",
			}

			routes := resolve(&config.Config{}, environ)
			Expect(routes).To(HaveLen(1))
			Expect(routes["orders"]).To(Equal([]string{"http://a.test/hook", "http://b.test/hook"}))
		})

		It("drops a bare prefix with no identifier", func() {
			routes := resolve(&config.Config{}, []string{"WEBHOOK_=http://a.test/hook"})
			Expect(routes).To(BeEmpty())
		})

		It("ignores the blob variable itself", func() {
			routes := resolve(&config.Config{}, []string{"WEBHOOKS_CONFIG=not json"})
			Expect(routes).To(BeEmpty())
		})
	})

	Context("JSON blob", func() {
		It("parses a well-formed object", func() {
			environ := []string{
				`WEBHOOKS_CONFIG={"orders":["http://a.test/hook"],"billing":["http://b.test/hook","http://c.test/hook"]}`,
			}

			routes := resolve(&config.Config{}, environ)
			Expect(routes).To(HaveLen(2))
			Expect(routes["billing"]).To(Equal([]string{"http://b.test/hook", "http://c.test/hook"}))
		})

		It("filters non-string elements out of a list", func() {
			environ := []string{
				`WEBHOOKS_CONFIG={"orders":["http://a.test/hook", 42, null, "http://b.test/hook"]}`,
			}

			routes := resolve(&config.Config{}, environ)
			Expect(routes["orders"]).To(Equal([]string{"http://a.test/hook", "http://b.test/hook"}))
		})

		It("drops entries whose value is not a list", func() {
			environ := []string{
				`WEBHOOKS_CONFIG={"orders":"http://a.test/hook","billing":["http://b.test/hook"]}`,
			}

			routes := resolve(&config.Config{}, environ)
			Expect(routes).NotTo(HaveKey("orders"))
			Expect(routes).To(HaveKey("billing"))
		})

		DescribeTable("malformed blobs resolve to nothing instead of failing",
			func(blob string) {
				routes := resolve(&config.Config{}, []string{"WEBHOOKS_CONFIG=" + blob})
				Expect(routes).To(BeEmpty())
			},
			Entry("invalid JSON", `{"orders":`),
			Entry("top-level array", `["http://a.test/hook"]`),
			Entry("top-level string", `"http://a.test/hook"`),
			Entry("top-level number", `7`),
		)
	})

	Context("source precedence", func() {
		It("prefers per-key env over the blob over file routes", func() {
			cfg := &config.Config{Routes: map[string][]string{
				"orders":  {"http://file.test/hook"},
				"billing": {"http://file.test/billing"},
				"audit":   {"http://file.test/audit"},
			}}
			environ := []string{
				`WEBHOOKS_CONFIG={"orders":["http://blob.test/hook"],"billing":["http://blob.test/billing"]}`,
				"WEBHOOK_ORDERS=http://env.test/hook",
			}

			routes := resolve(cfg, environ)
			Expect(routes["orders"]).To(Equal([]string{"http://env.test/hook"}))
			Expect(routes["billing"]).To(Equal([]string{"http://blob.test/billing"}))
			Expect(routes["audit"]).To(Equal([]string{"http://file.test/audit"}))
		})
	})
})
