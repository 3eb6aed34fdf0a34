// Package tracker owns the client-side lifecycle of conversion jobs.
//
// A Tracker submits conversions, runs one status poller per pending job and
// reconciles every poll response into a state transition:
//
//	Pending --"completed"--> Completed
//	Pending --"failed", 404, 500--> Failed
//	Pending --other status, transport error--> Pending
//	any --Delete--> Removed
//
// A 401 or 403 from any poll expires the session: every poller stops, the user
// is notified and the Navigator is sent to "/". Retry never mutates the old
// job; it tracks the id the server hands back as a new job.
//
// The registry maps job ids to their active poller. An id is in the registry
// exactly while its poller runs. Terminal transitions are compare-and-set on
// the job state, so overlapping ticks that observe the same outcome render and
// notify once.
//
// Presenter methods run with the tracker lock held and must not call back into
// the Tracker. Network calls, notifications and journal writes happen outside
// the lock.
package tracker
