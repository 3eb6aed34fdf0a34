package schedule

import (
	"sync"
	"time"
)

// VirtualClock is a manually advanced Clock. Callbacks run synchronously on
// the goroutine calling Advance.
type VirtualClock struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks []*virtualTask
}

// NewVirtualClock returns a clock starting at start.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

type virtualTask struct {
	clock    *VirtualClock
	seq      int
	interval time.Duration
	next     time.Time
	fn       func()
	active   bool
}

// Now returns the virtual time.
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Every registers fn to run every interval of virtual time.
func (c *VirtualClock) Every(interval time.Duration, fn func()) Task {
	if interval <= 0 {
		interval = time.Millisecond
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	task := &virtualTask{
		clock:    c,
		seq:      c.seq,
		interval: interval,
		next:     c.now.Add(interval),
		fn:       fn,
		active:   true,
	}
	c.tasks = append(c.tasks, task)
	return task
}

// Advance moves virtual time forward by d, firing every tick that falls due in
// time order. Ticks due at the same instant fire in registration order.
func (c *VirtualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		due := c.nextDueLocked(target)
		if due == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = due.next
		due.next = due.next.Add(due.interval)
		fn := due.fn
		c.mu.Unlock()

		fn()
	}
}

func (c *VirtualClock) nextDueLocked(target time.Time) *virtualTask {
	var due *virtualTask
	live := c.tasks[:0]
	for _, task := range c.tasks {
		if !task.active {
			continue
		}
		live = append(live, task)
		if task.next.After(target) {
			continue
		}
		if due == nil || task.next.Before(due.next) || (task.next.Equal(due.next) && task.seq < due.seq) {
			due = task
		}
	}
	c.tasks = live
	return due
}

// ActiveTasks returns the number of tasks that have not been cancelled.
func (c *VirtualClock) ActiveTasks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, task := range c.tasks {
		if task.active {
			count++
		}
	}
	return count
}

func (t *virtualTask) Cancel() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if !t.active {
		return false
	}
	t.active = false
	return true
}

func (t *virtualTask) Active() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	return t.active
}
