package destination

import (
	"net/url"
	"strings"
	"sync"
	"time"
)

// Destination represents one forward target with health status and
// response time monitoring.
type Destination struct {
	url              *url.URL
	mutex            sync.Mutex
	isHealthy        bool
	ewmaResponseTime time.Duration
	hasEWMA          bool
}

const ewmaAlpha = 0.2

// New creates a new Destination for the given URL.
// The destination starts in a healthy state.
func New(u *url.URL) *Destination {
	return &Destination{
		url:       u,
		isHealthy: true,
	}
}

// URL returns the destination URL.
func (d *Destination) URL() *url.URL {
	return d.url
}

func (d *Destination) String() string {
	return d.url.String()
}

// Compose returns the outbound URL for the given inbound sub-path.
// With an empty sub-path the destination URL is used unmodified; otherwise
// exactly one trailing slash is trimmed from the base before appending, so
// "https://x.test/hook/" and "https://x.test/hook" both compose with
// "/extra" to "https://x.test/hook/extra".
func (d *Destination) Compose(subpath string) string {
	if subpath == "" {
		return d.url.String()
	}

	base := strings.TrimSuffix(d.url.String(), "/")
	if !strings.HasPrefix(subpath, "/") {
		subpath = "/" + subpath
	}

	return base + subpath
}

// Redacted returns the destination URL with its query string stripped,
// safe for the config introspection endpoint.
func (d *Destination) Redacted() string {
	redacted := *d.url
	redacted.RawQuery = ""
	redacted.Fragment = ""

	return redacted.String()
}

// IsHealthy returns true if the destination is currently healthy.
// Health is purely observational: the dispatcher attempts every destination
// regardless of this flag.
func (d *Destination) IsHealthy() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.isHealthy
}

// SetHealthy updates the destination's health status.
// Returns true if the status changed, false if it was already in that state.
func (d *Destination) SetHealthy(healthy bool) (changed bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.isHealthy == healthy {
		return false
	}

	d.isHealthy = healthy
	return true
}

// RecordResponse updates the exponentially weighted moving average (EWMA)
// response time using the latest delivery duration.
func (d *Destination) RecordResponse(duration time.Duration) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if !d.hasEWMA {
		d.ewmaResponseTime = duration
		d.hasEWMA = true
		return
	}
	//ewma = (1 - α) * ewma + α * latest
	d.ewmaResponseTime = time.Duration((1-ewmaAlpha)*float64(d.ewmaResponseTime) + ewmaAlpha*float64(duration))
}

// EWMATime returns the exponentially weighted moving average response time.
// Returns 0 if no deliveries have been recorded yet.
func (d *Destination) EWMATime() time.Duration {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if !d.hasEWMA {
		return 0
	}

	return d.ewmaResponseTime
}
