// Package config loads, normalizes, and validates the TOML configuration for
// the slate publish tool.
package config
