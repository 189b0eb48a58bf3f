// Package routing holds the immutable identifier -> destination-set table.
// The table is built once at startup and shared across concurrent requests
// without locking; no request ever observes a partially-built table.
package routing
