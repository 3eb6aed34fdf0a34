// Package schedule provides cancellable recurring tasks behind a Clock
// interface.
//
// The real clock runs each task on a ticker and executes every tick in its own
// goroutine, so a slow tick never delays the next one and ticks may complete
// out of order. VirtualClock runs the same contract deterministically for
// tests: nothing fires until Advance is called.
//
// Task.Cancel is idempotent; only the first call reports true.
package schedule
