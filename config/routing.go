package config

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// EnvRoutePrefix marks per-key routing entries in the environment:
// WEBHOOK_orders=https://a.example/hook,https://b.example/hook
// defines the identifier "orders" with two destinations.
const EnvRoutePrefix = "WEBHOOK_"

// EnvRoutesBlob is the single-blob routing source: a JSON object mapping
// identifier to an array of destination URL strings.
const EnvRoutesBlob = "WEBHOOKS_CONFIG"

// ResolveRoutes builds the identifier -> destination-list mapping from the
// loaded config and an environment snapshot (as returned by os.Environ).
//
// Sources are applied in increasing precedence, each later source replacing
// earlier entries for the same identifier wholesale:
//
//  1. file routes (cfg.Routes)
//  2. the WEBHOOKS_CONFIG JSON blob
//  3. per-key WEBHOOK_* entries
//
// Malformed input never fails resolution. Bad blobs and bad entries are
// logged and skipped, degrading to a smaller (possibly empty) table.
// Identifiers whose destination list sanitizes to nothing are removed, so an
// empty route is indistinguishable from an absent one.
func ResolveRoutes(cfg *Config, environ []string, log *slog.Logger) map[string][]string {
	routes := make(map[string][]string)

	for id, targets := range cfg.Routes {
		if set := sanitizeTargets(targets); len(set) > 0 {
			routes[id] = set
		}
	}

	for id, targets := range parseRoutesBlob(lookupEnv(environ, EnvRoutesBlob), log) {
		routes[id] = targets
	}

	for id, targets := range parsePrefixedEnv(environ) {
		routes[id] = targets
	}

	return routes
}

// parseRoutesBlob decodes the single-blob source. The top level must be a
// JSON object; values that are not arrays are dropped whole, non-string array
// elements are filtered out. A blob that does not decode yields nothing.
func parseRoutesBlob(blob string, log *slog.Logger) map[string][]string {
	if blob == "" {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		log.Warn("ignoring malformed routes blob",
			slog.String("var", EnvRoutesBlob),
			slog.String("error", err.Error()))
		return nil
	}

	routes := make(map[string][]string, len(raw))

	for id, value := range raw {
		if strings.TrimSpace(id) == "" {
			continue
		}

		var elements []json.RawMessage
		if err := json.Unmarshal(value, &elements); err != nil {
			log.Warn("dropping route with non-array value",
				slog.String("id", id))
			continue
		}

		targets := make([]string, 0, len(elements))
		for _, element := range elements {
			var target string
			if err := json.Unmarshal(element, &target); err != nil {
				continue
			}
			targets = append(targets, target)
		}

		if set := sanitizeTargets(targets); len(set) > 0 {
			routes[id] = set
		}
	}

	return routes
}

// parsePrefixedEnv scans the environment snapshot for WEBHOOK_* keys. The
// identifier is the key remainder after the prefix, lowercased; the value is
// a comma-separated destination list.
func parsePrefixedEnv(environ []string) map[string][]string {
	routes := make(map[string][]string)

	for _, entry := range environ {
		key, value, found := strings.Cut(entry, "=")
		if !found || key == EnvRoutesBlob {
			continue
		}

		id, matched := strings.CutPrefix(key, EnvRoutePrefix)
		if !matched || id == "" {
			continue
		}

		if set := sanitizeTargets(strings.Split(value, ",")); len(set) > 0 {
			routes[strings.ToLower(id)] = set
		}
	}

	return routes
}

func sanitizeTargets(targets []string) []string {
	set := make([]string, 0, len(targets))

	for _, target := range targets {
		if trimmed := strings.TrimSpace(target); trimmed != "" {
			set = append(set, trimmed)
		}
	}

	return set
}

func lookupEnv(environ []string, name string) string {
	for _, entry := range environ {
		if key, value, found := strings.Cut(entry, "="); found && key == name {
			return value
		}
	}

	return ""
}
