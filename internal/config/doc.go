// Package config loads, normalizes, and validates pix360 configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// environment fallbacks such as PIX360_SESSION. The Config type centralizes
// every knob the CLI and tracker need: the conversion server and session
// cookie, the poll interval, local state/download directories, desktop
// notifications, and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
