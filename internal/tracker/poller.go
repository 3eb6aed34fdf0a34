package tracker

import (
	"errors"

	"pix360/internal/client"
	"pix360/internal/history"
	"pix360/internal/job"
	"pix360/internal/logging"
	"pix360/internal/notifications"
)

// tick polls the server once for id. Ticks for jobs that are no longer
// pending, or after the session expired, do nothing.
func (t *Tracker) tick(id string) {
	t.mu.Lock()
	current, ok := t.jobs[id]
	pending := ok && current.State == job.StatePending
	halted := t.expired || t.closed
	if pending && !halted {
		t.ticks.Add(1)
	}
	t.mu.Unlock()
	if !pending || halted {
		return
	}
	defer t.ticks.Done()

	status, err := t.client.Status(t.ctx, id)
	t.reconcile(id, status, err)
}

func (t *Tracker) reconcile(id string, status *client.StatusResponse, err error) {
	switch {
	case errors.Is(err, client.ErrSessionExpired):
		t.expireSession(id)
	case errors.Is(err, client.ErrJobNotFound), errors.Is(err, client.ErrServerError):
		t.finish(id, job.StateFailed, job.MediaUnknown, err.Error())
	case err != nil:
		t.logger.Debug("status poll failed; will retry",
			logging.JobID(id),
			logging.Error(err),
		)
	case status == nil:
		t.logger.Debug("empty status response", logging.JobID(id))
	case status.Failed():
		t.finish(id, job.StateFailed, job.MediaUnknown, "conversion failed")
	case status.Completed():
		t.finish(id, job.StateCompleted, job.MediaKindFromContentType(status.ContentType), status.ContentType)
	default:
		t.logger.Debug("conversion still running",
			logging.JobID(id),
			logging.String("status", status.Status),
		)
	}
}

// finish moves a pending job into a terminal state. Only the first caller for
// a given job wins; later observations are ignored.
func (t *Tracker) finish(id string, state job.State, media job.MediaKind, detail string) {
	t.mu.Lock()
	current, ok := t.jobs[id]
	if !ok || current.State != job.StatePending || t.expired || t.closed {
		t.mu.Unlock()
		return
	}
	current.State = state
	current.Media = media
	task := t.registry[id]
	delete(t.registry, id)
	switch state {
	case job.StateCompleted:
		t.presenter.RenderCompleted(id, current.Title, media)
	case job.StateFailed:
		t.presenter.RenderFailed(id, current.Title)
	}
	finished := *current
	t.mu.Unlock()

	if task != nil {
		task.Cancel()
	}

	event := history.EventFailed
	notice := notifications.EventJobFailed
	if state == job.StateCompleted {
		event = history.EventCompleted
		notice = notifications.EventJobCompleted
		detail = media.String()
	}
	attrs := []logging.Attr{
		logging.JobID(id),
		logging.Title(finished.Title),
		logging.Event(event),
	}
	if state == job.StateCompleted {
		attrs = append(attrs, logging.String("media", media.String()))
		t.logger.Info("conversion completed", logging.Args(attrs...)...)
	} else {
		attrs = append(attrs, logging.String("reason", detail))
		t.logger.Warn("conversion failed", logging.Args(attrs...)...)
	}

	t.notify(notice, notifications.Payload{"title": finished.Title, "job_id": id})
	t.record(finished, event, detail)
	t.notifyObservers(finished)
}

// expireSession stops every poller once and sends the user home.
func (t *Tracker) expireSession(triggeredBy string) {
	t.mu.Lock()
	if t.expired || t.closed {
		t.mu.Unlock()
		return
	}
	t.expired = true
	tasks := t.drainRegistryLocked()
	title := job.DefaultTitle
	if current, ok := t.jobs[triggeredBy]; ok {
		title = current.Title
	}
	t.mu.Unlock()

	for _, task := range tasks {
		task.Cancel()
	}

	t.logger.Warn("session expired; polling stopped",
		logging.JobID(triggeredBy),
		logging.Int("stopped_pollers", len(tasks)),
		logging.Event(history.EventSessionExpired),
	)
	t.notify(notifications.EventSessionExpired, nil)
	t.record(job.Job{ID: triggeredBy, Title: title}, history.EventSessionExpired, "")
	t.navigator.Navigate(HomePath)
}

func (t *Tracker) notify(event notifications.Event, payload notifications.Payload) {
	if err := t.notifier.Publish(t.ctx, event, payload); err != nil {
		t.logger.Warn("notification failed",
			logging.String("notification", string(event)),
			logging.Error(err),
		)
	}
}
