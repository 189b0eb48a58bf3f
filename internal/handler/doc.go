// Package handler implements the HTTP surface of the forwarder.
// It coordinates routing-table lookup, request capture, fan-out dispatch,
// and the health/config introspection endpoints.
package handler
