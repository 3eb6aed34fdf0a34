package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"pix360/internal/client"
	"pix360/internal/history"
	"pix360/internal/job"
	"pix360/internal/logging"
	"pix360/internal/notifications"
	"pix360/internal/schedule"
)

// DefaultInterval is the status poll interval.
const DefaultInterval = 3000 * time.Millisecond

// HomePath is where the Navigator is sent once the session expires.
const HomePath = "/"

var (
	// ErrInvalidRetryID is returned when the server answers a retry with an
	// empty id or the id that was retried.
	ErrInvalidRetryID = errors.New("server returned an invalid retry id")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("tracker closed")
)

// Tracker runs the job state machine.
type Tracker struct {
	client    Client
	presenter Presenter
	notifier  notifications.Service
	navigator Navigator
	journal   Journal
	clock     schedule.Clock
	interval  time.Duration
	logger    *slog.Logger
	sessionID string
	observers []func(job.Job)

	ctx    context.Context
	cancel context.CancelFunc

	submitting atomic.Bool

	// ticks counts polls in flight. Add happens under mu while the tracker
	// is open, so Close can Wait once closed is set.
	ticks sync.WaitGroup

	mu       sync.Mutex
	jobs     map[string]*job.Job
	order    []string
	registry map[string]schedule.Task
	expired  bool
	closed   bool
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock replaces the real clock, mainly for tests.
func WithClock(clock schedule.Clock) Option {
	return func(t *Tracker) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithInterval overrides the poll interval.
func WithInterval(interval time.Duration) Option {
	return func(t *Tracker) {
		if interval > 0 {
			t.interval = interval
		}
	}
}

// WithNotifier sets the service used for completion, failure and session
// notices.
func WithNotifier(svc notifications.Service) Option {
	return func(t *Tracker) {
		if svc != nil {
			t.notifier = svc
		}
	}
}

// WithNavigator sets the navigator used when the session expires.
func WithNavigator(nav Navigator) Option {
	return func(t *Tracker) {
		if nav != nil {
			t.navigator = nav
		}
	}
}

// WithJournal records job events in the given journal.
func WithJournal(journal Journal) Option {
	return func(t *Tracker) {
		t.journal = journal
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithSessionID tags journal entries and log lines with the run session id.
func WithSessionID(id string) Option {
	return func(t *Tracker) {
		t.sessionID = id
	}
}

// WithObserver registers fn to receive a copy of every job after it changes.
// Observers run outside the tracker lock.
func WithObserver(fn func(job.Job)) Option {
	return func(t *Tracker) {
		if fn != nil {
			t.observers = append(t.observers, fn)
		}
	}
}

// New constructs a tracker. A nil presenter discards card updates.
func New(c Client, presenter Presenter, opts ...Option) *Tracker {
	if presenter == nil {
		presenter = nopPresenter{}
	}
	t := &Tracker{
		client:    c,
		presenter: presenter,
		notifier:  notifications.NewService(nil),
		interval:  DefaultInterval,
		logger:    logging.NewNop(),
		jobs:      make(map[string]*job.Job),
		registry:  make(map[string]schedule.Task),
	}
	for _, opt := range opts {
		opt(t)
	}
	ctx := context.Background()
	if t.sessionID != "" {
		ctx = logging.WithSessionID(ctx, t.sessionID)
	}
	t.logger = logging.WithContext(ctx, logging.NewComponentLogger(t.logger, "tracker"))
	if t.clock == nil {
		t.clock = schedule.NewClock(t.logger)
	}
	if t.navigator == nil {
		t.navigator = NavigatorFunc(func(path string) {
			t.logger.Info("navigation requested", logging.String("path", path))
		})
	}
	t.ctx, t.cancel = context.WithCancel(ctx)
	return t
}

// Submit validates and sends a submission, then tracks the new job.
func (t *Tracker) Submit(ctx context.Context, sub Submission) (job.Job, error) {
	if err := sub.Validate(); err != nil {
		return job.Job{}, err
	}
	if !t.submitting.CompareAndSwap(false, true) {
		return job.Job{}, ErrSubmissionInFlight
	}
	defer t.submitting.Store(false)

	if err := t.usable(); err != nil {
		return job.Job{}, err
	}

	id, err := t.client.Start(ctx, sub.Form())
	if err != nil {
		t.logger.Warn("submission failed",
			logging.String("url", sub.URL),
			logging.Error(err),
		)
		return job.Job{}, fmt.Errorf("submit conversion: %w", err)
	}

	tracked, _ := t.track(id, sub.Title, false)
	t.logger.Info("conversion submitted",
		logging.JobID(tracked.ID),
		logging.Title(tracked.Title),
		logging.Event(history.EventSubmitted),
	)
	t.record(tracked, history.EventSubmitted, sub.URL)
	return tracked, nil
}

// Retry asks the server to rerun id and tracks the replacement job under the
// old title. The old job and its card are left as they are.
func (t *Tracker) Retry(ctx context.Context, id string) (job.Job, error) {
	return t.RetryAs(ctx, id, "")
}

// RetryAs is Retry with an explicit title for the replacement job. An empty
// title falls back to the tracked title of id, then to the default.
func (t *Tracker) RetryAs(ctx context.Context, id, title string) (job.Job, error) {
	if err := t.usable(); err != nil {
		return job.Job{}, err
	}
	if strings.TrimSpace(title) == "" {
		title = job.DefaultTitle
		if existing, ok := t.Get(id); ok {
			title = existing.Title
		}
	}

	newID, err := t.client.Retry(ctx, id)
	if err != nil {
		return job.Job{}, fmt.Errorf("retry %s: %w", id, err)
	}
	if newID == "" || newID == id {
		return job.Job{}, fmt.Errorf("retry %s: %w (%q)", id, ErrInvalidRetryID, newID)
	}

	tracked, _ := t.track(newID, title, false)
	t.logger.Info("conversion retried",
		logging.JobID(tracked.ID),
		logging.String("retried_from", id),
		logging.Title(tracked.Title),
		logging.Event(history.EventRetried),
	)
	t.record(tracked, history.EventRetried, "retry of "+id)
	return tracked, nil
}

// Restore tracks every restorable conversion the server lists for this
// session and returns how many were added. Ids already tracked are skipped.
// Restored jobs start Pending whatever their server status.
func (t *Tracker) Restore(ctx context.Context) (int, error) {
	if err := t.usable(); err != nil {
		return 0, err
	}
	conversions, err := t.client.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore conversions: %w", err)
	}
	restored := 0
	for _, conv := range conversions {
		if conv.ID == "" || !conv.Restorable() {
			continue
		}
		tracked, added := t.track(conv.ID, conv.Title, true)
		if !added {
			continue
		}
		restored++
		t.record(tracked, history.EventRestored, "")
	}
	t.logger.Info("conversions restored",
		logging.Int("restored", restored),
		logging.Int("listed", len(conversions)),
		logging.Event(history.EventRestored),
	)
	return restored, nil
}

// Delete stops polling id, removes its card and asks the server to discard it.
// The server request is sent once per call whether or not id is tracked; its
// failure is logged and otherwise ignored. The returned job is the removed
// record, if there was one.
func (t *Tracker) Delete(ctx context.Context, id string) (job.Job, bool) {
	t.mu.Lock()
	task := t.registry[id]
	delete(t.registry, id)
	var removed job.Job
	existing, found := t.jobs[id]
	if found {
		existing.State = job.StateRemoved
		removed = *existing
		delete(t.jobs, id)
		t.order = removeID(t.order, id)
	}
	t.presenter.Remove(id)
	t.mu.Unlock()

	if task != nil {
		task.Cancel()
	}
	if found {
		t.logger.Info("conversion removed",
			logging.JobID(id),
			logging.Title(removed.Title),
			logging.Event(history.EventRemoved),
		)
		t.record(removed, history.EventRemoved, "")
		t.notifyObservers(removed)
	}

	if err := t.client.Delete(ctx, id); err != nil {
		t.logger.Warn("server discard failed",
			logging.JobID(id),
			logging.Error(err),
		)
	}
	return removed, found
}

// Get returns a copy of the tracked job.
func (t *Tracker) Get(id string) (job.Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	existing, ok := t.jobs[id]
	if !ok {
		return job.Job{}, false
	}
	return *existing, true
}

// Snapshot returns every tracked job in the order it was added.
func (t *Tracker) Snapshot() []job.Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]job.Job, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.jobs[id])
	}
	return out
}

// Active returns the number of running pollers.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.registry)
}

// Polling reports whether id has an active poller.
func (t *Tracker) Polling(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.registry[id]
	return ok
}

// Expired reports whether the session expired.
func (t *Tracker) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expired
}

// Close stops every poller, cancels in-flight requests and waits for running
// ticks, so no observer, notification or journal write happens after it
// returns.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	tasks := t.drainRegistryLocked()
	t.mu.Unlock()

	for _, task := range tasks {
		task.Cancel()
	}
	t.cancel()
	t.ticks.Wait()
}

func (t *Tracker) usable() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.closed:
		return ErrClosed
	case t.expired:
		return client.ErrSessionExpired
	default:
		return nil
	}
}

// track creates or resets the pending job for id and starts its poller. With
// skipExisting, an id that is already known is left alone.
func (t *Tracker) track(id, title string, skipExisting bool) (job.Job, bool) {
	title = job.NormalizeTitle(title)

	t.mu.Lock()
	if existing, ok := t.jobs[id]; ok && skipExisting {
		current := *existing
		t.mu.Unlock()
		return current, false
	}
	if previous, ok := t.registry[id]; ok {
		previous.Cancel()
	}
	tracked, ok := t.jobs[id]
	if !ok {
		tracked = &job.Job{ID: id}
		t.jobs[id] = tracked
		t.order = append(t.order, id)
	}
	tracked.Title = title
	tracked.State = job.StatePending
	tracked.Media = job.MediaUnknown
	t.presenter.AddPending(id, title)
	t.registry[id] = t.clock.Every(t.interval, func() { t.tick(id) })
	current := *tracked
	t.mu.Unlock()

	t.notifyObservers(current)
	return current, true
}

func (t *Tracker) drainRegistryLocked() []schedule.Task {
	tasks := make([]schedule.Task, 0, len(t.registry))
	for id, task := range t.registry {
		tasks = append(tasks, task)
		delete(t.registry, id)
	}
	return tasks
}

func (t *Tracker) record(j job.Job, event, detail string) {
	if t.journal == nil {
		return
	}
	entry := history.Entry{
		JobID:     j.ID,
		Title:     j.Title,
		Event:     event,
		Detail:    detail,
		SessionID: t.sessionID,
	}
	if err := t.journal.Record(context.WithoutCancel(t.ctx), entry); err != nil {
		t.logger.Warn("history record failed",
			logging.JobID(j.ID),
			logging.Event(event),
			logging.Error(err),
		)
	}
}

func (t *Tracker) notifyObservers(j job.Job) {
	for _, fn := range t.observers {
		fn(j)
	}
}

func removeID(ids []string, id string) []string {
	for i, existing := range ids {
		if existing == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
