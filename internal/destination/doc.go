// Package destination models a single forward target: its URL, sub-path
// composition for deep webhook paths, probe-driven health status, and
// response time monitoring.
package destination
