package routing

import (
	"log/slog"
	"net/url"
	"sort"

	"github.com/relayforge/webhook-forwarder/internal/destination"
)

// Table maps webhook identifiers to their ordered destination sets.
// Destination order within a set is the configured order and determines
// the order of results in the aggregate response.
type Table struct {
	routes map[string][]*destination.Destination
}

// NewTable parses the resolved routing configuration into a frozen table.
// Destinations that fail URL parsing are logged and skipped; an identifier
// left with no valid destinations is dropped entirely.
func NewTable(resolved map[string][]string, log *slog.Logger) *Table {
	routes := make(map[string][]*destination.Destination, len(resolved))

	for id, targets := range resolved {
		set := make([]*destination.Destination, 0, len(targets))

		for _, target := range targets {
			u, err := url.Parse(target)
			if err != nil || u.Scheme == "" || u.Host == "" {
				log.Warn("skipping unparseable destination",
					slog.String("id", id),
					slog.String("url", target))
				continue
			}

			set = append(set, destination.New(u))
		}

		if len(set) > 0 {
			routes[id] = set
		}
	}

	return &Table{routes: routes}
}

// Lookup returns the destination set for an identifier. The second return
// is false when the identifier is unknown or has no destinations.
func (t *Table) Lookup(id string) ([]*destination.Destination, bool) {
	set, ok := t.routes[id]
	if !ok || len(set) == 0 {
		return nil, false
	}

	return set, true
}

// Len returns the number of configured routes.
func (t *Table) Len() int {
	return len(t.routes)
}

// Routes returns the configured identifiers in sorted order.
func (t *Table) Routes() []string {
	ids := make([]string, 0, len(t.routes))
	for id := range t.routes {
		ids = append(ids, id)
	}

	sort.Strings(ids)
	return ids
}

// Destinations returns every destination in the table, for wiring health
// probes and diagnostics. Order follows sorted identifiers.
func (t *Table) Destinations() []*destination.Destination {
	var all []*destination.Destination
	for _, id := range t.Routes() {
		all = append(all, t.routes[id]...)
	}

	return all
}

// Redacted returns identifier -> destination URLs with query strings
// stripped, for the config introspection endpoint.
func (t *Table) Redacted() map[string][]string {
	redacted := make(map[string][]string, len(t.routes))

	for id, set := range t.routes {
		urls := make([]string, 0, len(set))
		for _, d := range set {
			urls = append(urls, d.Redacted())
		}
		redacted[id] = urls
	}

	return redacted
}
