package liveness

import (
	"sync"
	"time"
)

// ScheduledTask is a handle on a recurring task.
type ScheduledTask interface {
	// Cancel stops future runs. A run already in progress finishes.
	Cancel()
}

// Scheduler runs recurring tasks. The monitor takes a Scheduler rather than
// spawning its own timers so tests can drive the clock.
type Scheduler interface {
	// ScheduleWithFixedDelay runs task after initialDelay, then repeatedly
	// with delay measured from the end of each run.
	ScheduleWithFixedDelay(task func(), initialDelay, delay time.Duration) ScheduledTask

	// ShutdownNow cancels every scheduled task.
	ShutdownNow()
}

// TimerScheduler is the default Scheduler, one goroutine per task.
type TimerScheduler struct {
	mu    sync.Mutex
	tasks map[*timerTask]struct{}
	down  bool
}

// NewTimerScheduler constructs a ready TimerScheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{tasks: make(map[*timerTask]struct{})}
}

type timerTask struct {
	stop     chan struct{}
	stopOnce sync.Once
	owner    *TimerScheduler
}

func (t *timerTask) Cancel() {
	t.stopOnce.Do(func() { close(t.stop) })
	t.owner.mu.Lock()
	delete(t.owner.tasks, t)
	t.owner.mu.Unlock()
}

// ScheduleWithFixedDelay implements Scheduler. The delay is fixed: the next
// run is armed only after the previous one returns.
func (s *TimerScheduler) ScheduleWithFixedDelay(task func(), initialDelay, delay time.Duration) ScheduledTask {
	t := &timerTask{stop: make(chan struct{}), owner: s}
	s.mu.Lock()
	if s.down {
		s.mu.Unlock()
		t.stopOnce.Do(func() { close(t.stop) })
		return t
	}
	s.tasks[t] = struct{}{}
	s.mu.Unlock()

	go func() {
		wait := initialDelay
		for {
			timer := time.NewTimer(wait)
			select {
			case <-t.stop:
				timer.Stop()
				return
			case <-timer.C:
			}
			task()
			wait = delay
		}
	}()
	return t
}

// ShutdownNow implements Scheduler.
func (s *TimerScheduler) ShutdownNow() {
	s.mu.Lock()
	s.down = true
	tasks := make([]*timerTask, 0, len(s.tasks))
	for t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.tasks = make(map[*timerTask]struct{})
	s.mu.Unlock()
	for _, t := range tasks {
		t.stopOnce.Do(func() { close(t.stop) })
	}
}
