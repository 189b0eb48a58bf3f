// Package forwarder implements the fan-out dispatcher. It captures an
// inbound request exactly once, delivers it concurrently to every destination
// of a route, and folds the per-destination outcomes into a single aggregate.
//
// Deliveries are fully isolated: a transport failure or non-2xx response on
// one leg never aborts or alters the record of any other leg. Results are
// re-sequenced to the configured destination order regardless of completion
// order, so the aggregate is deterministic.
package forwarder
