// Package history keeps a local SQLite journal of conversion events.
//
// The tracker records submissions, retries, terminal transitions and
// deletions so `pix360 history` can show what happened across runs. The
// journal is informational only; the server stays the source of truth for job
// status.
//
// Schema changes are numbered SQL files under migrations/. Opening a journal
// applies the ones it lacks; a journal from a newer build is rejected with
// ErrSchemaMismatch.
package history
