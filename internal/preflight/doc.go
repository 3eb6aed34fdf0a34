// Package preflight provides readiness checks for the conversion server and
// the local paths pix360 depends on.
//
// `pix360 doctor` runs RunAll and prints every result. `pix360 watch` runs the
// server check alone before restoring jobs so an expired session is reported
// up front instead of on the first poll.
//
// Checks never fail hard; each returns a Result describing what it found.
package preflight
