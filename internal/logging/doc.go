// Package logging assembles structured slog loggers and formatting helpers used
// across pix360 commands and the job tracker.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes helpers so tracker code can tag log lines with job ids and the
// client session id. The package also provides a no-op logger for tests and
// wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same shape.
package logging
