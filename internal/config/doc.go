// Package config loads, validates, and defaults the TOML configuration for the
// lectern worker.
package config
