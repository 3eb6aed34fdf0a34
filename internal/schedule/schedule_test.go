package schedule_test

import (
	"sync/atomic"
	"testing"
	"time"

	"pix360/internal/logging"
	"pix360/internal/schedule"
)

func TestVirtualClockFiresOnInterval(t *testing.T) {
	clock := schedule.NewVirtualClock(time.Unix(0, 0))
	var ticks int
	clock.Every(3*time.Second, func() { ticks++ })

	clock.Advance(2 * time.Second)
	if ticks != 0 {
		t.Fatalf("expected no ticks before the interval, got %d", ticks)
	}
	clock.Advance(1 * time.Second)
	if ticks != 1 {
		t.Fatalf("expected 1 tick, got %d", ticks)
	}
	clock.Advance(9 * time.Second)
	if ticks != 4 {
		t.Fatalf("expected 4 ticks, got %d", ticks)
	}
}

func TestVirtualTaskCancelIsIdempotent(t *testing.T) {
	clock := schedule.NewVirtualClock(time.Unix(0, 0))
	var ticks int
	task := clock.Every(time.Second, func() { ticks++ })

	if !task.Cancel() {
		t.Fatal("expected first cancel to report true")
	}
	if task.Cancel() {
		t.Fatal("expected second cancel to report false")
	}
	if task.Active() {
		t.Fatal("expected task to be inactive")
	}
	clock.Advance(5 * time.Second)
	if ticks != 0 {
		t.Fatalf("expected no ticks after cancel, got %d", ticks)
	}
	if clock.ActiveTasks() != 0 {
		t.Fatalf("expected no active tasks, got %d", clock.ActiveTasks())
	}
}

func TestVirtualTaskCancelledFromOwnTick(t *testing.T) {
	clock := schedule.NewVirtualClock(time.Unix(0, 0))
	var task schedule.Task
	var ticks int
	task = clock.Every(time.Second, func() {
		ticks++
		task.Cancel()
	})
	clock.Advance(10 * time.Second)
	if ticks != 1 {
		t.Fatalf("expected exactly one tick, got %d", ticks)
	}
}

func TestVirtualClockOrdersTasks(t *testing.T) {
	clock := schedule.NewVirtualClock(time.Unix(0, 0))
	var order []string
	clock.Every(2*time.Second, func() { order = append(order, "slow") })
	clock.Every(time.Second, func() { order = append(order, "fast") })

	clock.Advance(2 * time.Second)
	want := []string{"fast", "slow", "fast"}
	if len(order) != len(want) {
		t.Fatalf("unexpected order %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("unexpected order %v", order)
		}
	}
}

func TestRealClockTicksAndCancels(t *testing.T) {
	clock := schedule.NewClock(logging.NewNop())
	var ticks atomic.Int32
	fired := make(chan struct{}, 1)
	task := clock.Every(10*time.Millisecond, func() {
		ticks.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("expected real clock to tick")
	}
	if !task.Cancel() {
		t.Fatal("expected first cancel to report true")
	}
	if task.Cancel() {
		t.Fatal("expected second cancel to report false")
	}
}

func TestRealClockRecoversPanics(t *testing.T) {
	clock := schedule.NewClock(logging.NewNop())
	var ticks atomic.Int32
	task := clock.Every(5*time.Millisecond, func() {
		if ticks.Add(1) == 1 {
			panic("boom")
		}
	})
	defer task.Cancel()

	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("expected ticks to continue after a panic")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
