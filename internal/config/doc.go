// Package config loads, normalizes, and validates the TOML configuration
// that drives the pipeline. Defaults are layered under file values, paths
// are expanded, and secrets are resolved from the environment.
package config
