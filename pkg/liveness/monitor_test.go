package liveness

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// manualScheduler runs the task only when the test fires it.
type manualScheduler struct {
	task     func()
	canceled atomic.Bool
	down     atomic.Bool
}

type manualTask struct{ s *manualScheduler }

func (t *manualTask) Cancel() { t.s.canceled.Store(true) }

func (s *manualScheduler) ScheduleWithFixedDelay(task func(), _, _ time.Duration) ScheduledTask {
	s.task = task
	return &manualTask{s: s}
}

func (s *manualScheduler) ShutdownNow() { s.down.Store(true) }

func (s *manualScheduler) fire() {
	if s.task != nil && !s.canceled.Load() {
		s.task()
	}
}

func TestMonitorTriggersRecoveryOnInvalidProbe(t *testing.T) {
	sched := &manualScheduler{}
	valid := atomic.Bool{}
	valid.Store(true)
	var recoveries int32

	m := NewMonitor(
		func(context.Context) (bool, error) { return valid.Load(), nil },
		func() { atomic.AddInt32(&recoveries, 1) },
		sched, Config{}, nil)
	m.Start()

	sched.fire()
	if got := atomic.LoadInt32(&recoveries); got != 0 {
		t.Fatalf("recovery fired on a healthy probe: %d", got)
	}

	valid.Store(false)
	sched.fire()
	if got := atomic.LoadInt32(&recoveries); got != 1 {
		t.Fatalf("recoveries = %d, want 1", got)
	}

	// Cycles continue: a still-dead connection triggers again next cycle.
	sched.fire()
	if got := atomic.LoadInt32(&recoveries); got != 2 {
		t.Fatalf("recoveries = %d, want 2", got)
	}
}

func TestMonitorSwallowsProbeErrors(t *testing.T) {
	sched := &manualScheduler{}
	var recoveries int32
	probes := int32(0)

	m := NewMonitor(
		func(context.Context) (bool, error) {
			atomic.AddInt32(&probes, 1)
			return false, errors.New("probe transport broken")
		},
		func() { atomic.AddInt32(&recoveries, 1) },
		sched, Config{}, nil)
	m.Start()

	sched.fire()
	sched.fire()

	if got := atomic.LoadInt32(&probes); got != 2 {
		t.Fatalf("probe ran %d times, want 2", got)
	}
	if got := atomic.LoadInt32(&recoveries); got != 0 {
		t.Fatalf("recovery fired despite probe error: %d", got)
	}
}

func TestMonitorShutdownIsTerminalAndIdempotent(t *testing.T) {
	sched := &manualScheduler{}
	m := NewMonitor(
		func(context.Context) (bool, error) { return true, nil },
		func() {},
		sched, Config{}, nil)
	m.Start()

	m.Shutdown()
	m.Shutdown()

	if !sched.canceled.Load() {
		t.Fatalf("scheduled task was not canceled")
	}
	if !sched.down.Load() {
		t.Fatalf("scheduler was not shut down")
	}

	// A shut-down monitor cannot be restarted.
	sched.task = nil
	m.Start()
	if sched.task != nil {
		t.Fatalf("Start after Shutdown scheduled a task")
	}
}

func TestMonitorStartTwiceSchedulesOnce(t *testing.T) {
	sched := &manualScheduler{}
	var scheduled int32
	countingSched := schedulerFunc{
		schedule: func(task func(), _, _ time.Duration) ScheduledTask {
			atomic.AddInt32(&scheduled, 1)
			sched.task = task
			return &manualTask{s: sched}
		},
	}
	m := NewMonitor(
		func(context.Context) (bool, error) { return true, nil },
		func() {},
		countingSched, Config{}, nil)
	m.Start()
	m.Start()

	if got := atomic.LoadInt32(&scheduled); got != 1 {
		t.Fatalf("task scheduled %d times, want 1", got)
	}
}

type schedulerFunc struct {
	schedule func(func(), time.Duration, time.Duration) ScheduledTask
}

func (s schedulerFunc) ScheduleWithFixedDelay(task func(), initial, delay time.Duration) ScheduledTask {
	return s.schedule(task, initial, delay)
}

func (s schedulerFunc) ShutdownNow() {}

func TestTimerSchedulerFixedDelay(t *testing.T) {
	s := NewTimerScheduler()
	defer s.ShutdownNow()

	ran := make(chan struct{}, 8)
	task := s.ScheduleWithFixedDelay(func() { ran <- struct{}{} }, 5*time.Millisecond, 5*time.Millisecond)
	defer task.Cancel()

	for i := 0; i < 3; i++ {
		select {
		case <-ran:
		case <-time.After(2 * time.Second):
			t.Fatalf("run %d did not happen", i)
		}
	}

	task.Cancel()
	// Drain anything in flight, then verify no further runs.
	time.Sleep(30 * time.Millisecond)
	for len(ran) > 0 {
		<-ran
	}
	select {
	case <-ran:
		t.Fatalf("task ran after cancel")
	case <-time.After(30 * time.Millisecond):
	}
}
