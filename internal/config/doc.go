// Package config loads, normalizes, and validates compositor configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// COMPOSITOR_FFMPEG and COMPOSITOR_FFPROBE. The Config type centralizes every
// knob the engines and CLI need: binary paths, the concurrency cap, job
// timeouts, and the encode defaults applied by each job kind.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
