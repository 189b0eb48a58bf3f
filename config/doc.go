// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including server settings, the per-delivery forward timeout, and the three
// routing-table sources (file routes, a single JSON blob, prefixed env keys).
package config
