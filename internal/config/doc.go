// Package config loads, normalizes, and validates livecatalog configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// LIVECATALOG_DATA_DIR. The Config type centralizes every knob the recorder,
// editor, and CLI need so the data directory, capture parameters, and storage
// thresholds are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
