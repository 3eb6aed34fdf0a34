package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"pix360/internal/client"
	"pix360/internal/job"
	"pix360/internal/tracker"
)

// jobWaiter collects tracker updates for commands that block until jobs
// settle. It doubles as the navigator, so a session expiry ends the wait.
type jobWaiter struct {
	updates chan job.Job
	done    chan struct{}
	expired chan struct{}

	doneOnce    sync.Once
	expiredOnce sync.Once
}

func newJobWaiter() *jobWaiter {
	return &jobWaiter{
		updates: make(chan job.Job, 32),
		done:    make(chan struct{}),
		expired: make(chan struct{}),
	}
}

func (w *jobWaiter) options() []tracker.Option {
	return []tracker.Option{
		tracker.WithObserver(w.observe),
		tracker.WithNavigator(tracker.NavigatorFunc(func(string) { w.expire() })),
	}
}

func (w *jobWaiter) observe(j job.Job) {
	select {
	case w.updates <- j:
	case <-w.done:
	}
}

func (w *jobWaiter) expire() {
	w.expiredOnce.Do(func() { close(w.expired) })
}

func (w *jobWaiter) stop() {
	w.doneOnce.Do(func() { close(w.done) })
}

// wait blocks until every id reaches a terminal state. report is called for
// each update of a watched job.
func (w *jobWaiter) wait(ctx context.Context, ids []string, report func(job.Job)) (map[string]job.Job, error) {
	defer w.stop()
	pending := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		pending[id] = struct{}{}
	}
	finished := make(map[string]job.Job, len(ids))
	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			return finished, ctx.Err()
		case <-w.expired:
			return finished, client.ErrSessionExpired
		case update := <-w.updates:
			if _, watched := pending[update.ID]; !watched {
				continue
			}
			if report != nil {
				report(update)
			}
			if update.State.Terminal() {
				delete(pending, update.ID)
				finished[update.ID] = update
			}
		}
	}
	return finished, nil
}

// jobLine reports a job update as a status line.
func jobLine(out io.Writer, colorize bool) func(job.Job) {
	return func(j job.Job) {
		kind := statusInfo
		switch j.State {
		case job.StateCompleted:
			kind = statusOK
		case job.StateFailed:
			kind = statusError
		case job.StateRemoved:
			kind = statusWarn
		}
		message := fmt.Sprintf("%s (%s)", j.Title, stateLabel(j.State, false))
		if j.State == job.StateCompleted {
			message = fmt.Sprintf("%s (%s, %s)", j.Title, stateLabel(j.State, false), j.Media)
		}
		fmt.Fprintln(out, renderStatusLine(j.ID, kind, message, colorize))
	}
}

// lockedWriter serializes writes from poll goroutines and the command
// goroutine.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// outcomeError summarizes failed jobs after a wait.
func outcomeError(finished map[string]job.Job) error {
	failed := 0
	for _, j := range finished {
		if j.State == job.StateFailed {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d conversion(s) failed", failed)
}

// explainSession rewrites a session error into a hint to sign in again.
func explainSession(baseURL string, err error) error {
	if errors.Is(err, client.ErrSessionExpired) {
		return fmt.Errorf("%w: sign in again at %s%s", client.ErrSessionExpired, baseURL, tracker.HomePath)
	}
	return err
}
