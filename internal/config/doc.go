// Package config loads, normalizes, and validates curator configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CURATOR_GITHUB_TOKEN. The Config type centralizes every knob the CLI and
// pipeline need, so downstream code receives sanitized paths, canonical log
// formats, and clear validation errors.
package config
