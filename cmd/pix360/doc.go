// Package main hosts the pix360 CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into tracker operations
// against the conversion server: submitting, watching, retrying and hiding
// conversions, plus inspection commands (list, status, log, history), asset
// downloads and configuration scaffolding. It centralizes configuration
// resolution, the per-run session id and logging setup so subcommands only
// deal with presentation.
//
// Add behaviour to the internal packages first and surface it here.
package main
