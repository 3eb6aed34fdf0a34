package schedule

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"pix360/internal/logging"
)

// Task is a handle to a recurring callback.
type Task interface {
	// Cancel stops future ticks. It reports whether this call stopped the task.
	Cancel() bool
	// Active reports whether the task has not been cancelled.
	Active() bool
}

// Clock schedules recurring callbacks.
type Clock interface {
	Every(interval time.Duration, fn func()) Task
	Now() time.Time
}

// NewClock returns a clock backed by real timers. Panics raised by callbacks
// are recovered and logged.
func NewClock(logger *slog.Logger) Clock {
	return &realClock{logger: logging.NewComponentLogger(logger, "schedule")}
}

type realClock struct {
	logger *slog.Logger
}

func (c *realClock) Now() time.Time { return time.Now() }

func (c *realClock) Every(interval time.Duration, fn func()) Task {
	task := &tickerTask{done: make(chan struct{})}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-task.done:
				return
			case <-ticker.C:
				if !task.Active() {
					return
				}
				go c.run(fn)
			}
		}
	}()
	return task
}

func (c *realClock) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("scheduled task panicked",
				logging.String("panic", fmt.Sprint(r)),
				logging.String("stack", string(debug.Stack())),
			)
		}
	}()
	fn()
}

type tickerTask struct {
	once      sync.Once
	cancelled atomic.Bool
	done      chan struct{}
}

func (t *tickerTask) Cancel() bool {
	stopped := false
	t.once.Do(func() {
		t.cancelled.Store(true)
		close(t.done)
		stopped = true
	})
	return stopped
}

func (t *tickerTask) Active() bool {
	return !t.cancelled.Load()
}
