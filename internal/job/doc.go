// Package job defines the client-side model of a conversion job: its
// server-assigned id, user title, media kind, and the poll state the tracker
// drives it through.
//
// State is the single source of truth for a tracked job. Cards and terminal
// views are projections of it.
package job
