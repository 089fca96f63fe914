// Package config loads, normalizes, and validates Reelforge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// GEMINI_API_KEY. The Config type centralizes every knob the daemon and CLI
// need, so queue and cache database locations, per-task working directories,
// and external service credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
