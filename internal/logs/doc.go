// Package logs reads the pix360 log file for `pix360 logs`.
//
// Tail returns the last lines of a file with bounded memory, and Follow keeps
// streaming lines appended after a byte offset until the context ends.
package logs
